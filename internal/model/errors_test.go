package model

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateRace(t *testing.T) {
	ok := RaceRecord{QuoteID: 1, WPM: 80, Accuracy: 97, TimeSeconds: 12.5, Errors: 2}
	if err := ValidateRace(ok); err != nil {
		t.Fatalf("expected valid race, got %v", err)
	}

	cases := []struct {
		name string
		rec  RaceRecord
		want string
	}{
		{"wpm too high", RaceRecord{WPM: 501}, "wpm must be <= 500"},
		{"negative wpm", RaceRecord{WPM: -1}, "wpm must be >= 0"},
		{"accuracy over 100", RaceRecord{Accuracy: 100.5}, "accuracy must be <= 100"},
		{"negative time", RaceRecord{TimeSeconds: -2}, "timeseconds must be >= 0"},
		{"negative errors", RaceRecord{Errors: -1}, "errors must be >= 0"},
	}
	for _, tc := range cases {
		err := ValidateRace(tc.rec)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %q in %q", tc.name, tc.want, err.Error())
		}
	}
}
