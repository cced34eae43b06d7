package corpus

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadRewards reads a reward pool with one name per line. Blank lines and
// lines starting with '#' are skipped, as are repeated names.
func LoadRewards(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reward list: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for a read-only list.
			_ = cerr
		}
	}()

	var names []string
	seen := map[string]struct{}{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reward list: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("reward list %s is empty", path)
	}
	return names, nil
}
