// Package metric converts keystroke outcomes into WPM, accuracy and elapsed time.
package metric

import (
	"fmt"
	"math"
	"time"
)

// charsPerWord is the standard typing-test word length.
const charsPerWord = 5

// Engine counts keystrokes between Start and Stop.
type Engine struct {
	now func() time.Time

	startedAt time.Time
	endedAt   time.Time
	running   bool

	correct int
	typed   int
}

// New returns an Engine reading time from now, or time.Now when now is nil.
func New(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Start resets the counters and records the start instant.
func (e *Engine) Start() {
	e.Reset()
	e.startedAt = e.now()
	e.running = true
}

// Stop freezes the end instant. Calling Stop twice keeps the first end.
func (e *Engine) Stop() {
	if !e.running {
		return
	}
	e.endedAt = e.now()
	e.running = false
}

// Reset clears all counters and instants.
func (e *Engine) Reset() {
	e.startedAt = time.Time{}
	e.endedAt = time.Time{}
	e.running = false
	e.correct = 0
	e.typed = 0
}

// RecordKeystroke counts one keystroke. It is ignored unless the engine is running.
func (e *Engine) RecordKeystroke(correct bool) {
	if !e.running {
		return
	}
	e.typed++
	if correct {
		e.correct++
	}
}

// Running reports whether the engine is between Start and Stop.
func (e *Engine) Running() bool {
	return e.running
}

// CorrectCount returns the number of correct keystrokes.
func (e *Engine) CorrectCount() int {
	return e.correct
}

// TotalTyped returns the number of recorded keystrokes.
func (e *Engine) TotalTyped() int {
	return e.typed
}

// Elapsed returns the time between start and the end (or now while running).
func (e *Engine) Elapsed() time.Duration {
	if e.startedAt.IsZero() {
		return 0
	}
	end := e.endedAt
	if end.IsZero() {
		end = e.now()
	}
	d := end.Sub(e.startedAt)
	if d < 0 {
		return 0
	}
	return d
}

// ElapsedSeconds returns the whole seconds elapsed.
func (e *Engine) ElapsedSeconds() int {
	return int(e.Elapsed() / time.Second)
}

// ElapsedMinutes returns the fractional minutes elapsed.
func (e *Engine) ElapsedMinutes() float64 {
	return e.Elapsed().Minutes()
}

// WPM returns round((correct/5)/minutes), or 0 when no time has elapsed.
func (e *Engine) WPM() int {
	minutes := e.ElapsedMinutes()
	if minutes <= 0 {
		return 0
	}
	words := float64(e.correct) / charsPerWord
	return int(math.Round(words / minutes))
}

// Accuracy returns the rounded percentage of correct keystrokes, 100 before any keystroke.
func (e *Engine) Accuracy() int {
	if e.typed == 0 {
		return 100
	}
	return int(math.Round(float64(e.correct) / float64(e.typed) * 100))
}

// FormattedTime renders the elapsed time as m:ss.
func (e *Engine) FormattedTime() string {
	return FormatClock(e.ElapsedSeconds())
}

// FormatClock renders whole seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
