// Package race drives a single typing race from the first keystroke to the
// saved record.
package race

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/verte-zerg/typerush/internal/generator"
	"github.com/verte-zerg/typerush/internal/metric"
	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/records"
	"github.com/verte-zerg/typerush/internal/syncer"
)

// State is the lifecycle position of a Session.
type State int

// Session states.
const (
	StateIdle State = iota
	StateRacing
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateRacing:
		return "racing"
	case StateFinished:
		return "finished"
	default:
		return "idle"
	}
}

// ErrNoQuotes is returned when a race is started with an empty corpus.
var ErrNoQuotes = errors.New("no quotes available")

// Recorder is the local record store a finished race is saved to.
type Recorder interface {
	QuoteRecord(quoteID int) (model.QuoteRecord, bool)
	OverallBest() (int, float64)
	Save(ctx context.Context, rec model.RaceRecord) (records.SaveResult, error)
}

// Pusher uploads a saved race in the background.
type Pusher interface {
	PushAsync(rec model.RaceRecord) *syncer.Task
}

// Result is the outcome of a finished race.
type Result struct {
	Record             model.RaceRecord
	IsNewQuoteRecord   bool
	IsNewOverallRecord bool
	PreviousRecord     *model.QuoteRecord
	FormattedTime      string
	// Sync is nil when no pusher is configured.
	Sync *syncer.Task
}

// Config wires a Session to its collaborators.
type Config struct {
	Quotes    []model.Quote
	Rewards   []string
	Generator *generator.Generator
	Records   Recorder
	Sync      Pusher
	Now       func() time.Time
}

// Session is the typing state machine. It is not safe for concurrent use;
// the UI loop owns it.
type Session struct {
	quotes  []model.Quote
	rewards []string
	gen     *generator.Generator
	records Recorder
	sync    Pusher
	engine  *metric.Engine

	state     State
	quote     model.Quote
	text      []rune
	cursor    int
	errors    int
	reward    string
	lastOK    bool
	result    *Result
	finishErr error
}

// New creates an idle Session.
func New(cfg Config) *Session {
	gen := cfg.Generator
	if gen == nil {
		gen = generator.New()
	}
	return &Session{
		quotes:  cfg.Quotes,
		rewards: cfg.Rewards,
		gen:     gen,
		records: cfg.Records,
		sync:    cfg.Sync,
		engine:  metric.New(cfg.Now),
		lastOK:  true,
	}
}

// StartRace picks a random quote and reward and starts timing.
func (s *Session) StartRace() (model.Quote, error) {
	q, ok := s.gen.PickQuote(s.quotes)
	if !ok {
		return model.Quote{}, ErrNoQuotes
	}
	s.StartQuote(q)
	return q, nil
}

// StartQuote starts a race on a specific quote with a random reward.
func (s *Session) StartQuote(q model.Quote) {
	s.resetState()
	s.quote = q
	s.text = []rune(q.Text)
	s.reward = s.gen.PickReward(s.rewards)
	s.state = StateRacing
	s.engine.Start()
}

// HandleKeyPress applies one typed character. A match advances the cursor
// and completing the text finishes the race; a mismatch counts an error and
// leaves the cursor in place. Keys outside a race are ignored. The returned
// error comes from saving a finished race.
func (s *Session) HandleKeyPress(ctx context.Context, key rune) error {
	if s.state != StateRacing || s.cursor >= len(s.text) {
		return nil
	}
	if key == s.text[s.cursor] {
		s.engine.RecordKeystroke(true)
		s.cursor++
		s.lastOK = true
		if s.cursor >= len(s.text) {
			return s.finishRace(ctx)
		}
		return nil
	}
	s.engine.RecordKeystroke(false)
	s.errors++
	s.lastOK = false
	return nil
}

// finishRace stops timing and records the race. Record flags are judged
// against the bests as they were before this race. A failed push never
// touches the saved race.
func (s *Session) finishRace(ctx context.Context) error {
	s.engine.Stop()
	s.state = StateFinished

	rec := model.RaceRecord{
		QuoteID:     s.quote.ID,
		QuoteSource: s.quote.Source,
		WPM:         s.engine.WPM(),
		Accuracy:    float64(s.engine.Accuracy()),
		TimeSeconds: float64(s.engine.ElapsedSeconds()),
		Errors:      s.errors,
		RewardName:  s.reward,
	}
	if err := model.ValidateRace(rec); err != nil {
		s.finishErr = err
		return err
	}

	res := &Result{Record: rec, FormattedTime: s.engine.FormattedTime()}
	if s.records == nil {
		res.IsNewQuoteRecord = true
		res.IsNewOverallRecord = true
		s.result = res
		return nil
	}

	prev, hadPrev := s.records.QuoteRecord(rec.QuoteID)
	bestWPM, _ := s.records.OverallBest()
	if hadPrev {
		p := prev
		res.PreviousRecord = &p
	}
	res.IsNewQuoteRecord = !hadPrev || rec.WPM > prev.WPM
	res.IsNewOverallRecord = rec.WPM > bestWPM

	saved, err := s.records.Save(ctx, rec)
	if err != nil {
		s.finishErr = err
		s.result = res
		return err
	}
	res.Record = saved.Record
	if s.sync != nil {
		res.Sync = s.sync.PushAsync(saved.Record)
	}
	s.result = res
	return nil
}

// Reset abandons any race and returns to idle.
func (s *Session) Reset() {
	s.resetState()
	s.quote = model.Quote{}
	s.text = nil
	s.reward = ""
}

func (s *Session) resetState() {
	s.engine.Reset()
	s.state = StateIdle
	s.cursor = 0
	s.errors = 0
	s.lastOK = true
	s.result = nil
	s.finishErr = nil
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Quote returns the quote being typed.
func (s *Session) Quote() model.Quote { return s.quote }

// Reward returns the reward drawn for this race.
func (s *Session) Reward() string { return s.reward }

// Cursor returns the number of characters typed correctly so far.
func (s *Session) Cursor() int { return s.cursor }

// Errors returns the number of mistyped keys.
func (s *Session) Errors() int { return s.errors }

// Text returns the quote text as runes.
func (s *Session) Text() []rune { return s.text }

// CurrentChar returns the next expected character.
func (s *Session) CurrentChar() (rune, bool) {
	if s.cursor >= len(s.text) {
		return 0, false
	}
	return s.text[s.cursor], true
}

// LastKeyCorrect reports whether the most recent key matched. It is true
// before any key is pressed.
func (s *Session) LastKeyCorrect() bool { return s.lastOK }

// Progress returns the completed fraction of the text.
func (s *Session) Progress() float64 {
	if len(s.text) == 0 {
		return 0
	}
	return float64(s.cursor) / float64(len(s.text))
}

// WordCount returns the number of words typed so far and the total.
func (s *Session) WordCount() (typed, total int) {
	if len(s.text) == 0 {
		return 0, 0
	}
	total = len(strings.Split(string(s.text), " "))
	typed = len(strings.Fields(string(s.text[:s.cursor])))
	return typed, total
}

// WPM returns the live words-per-minute.
func (s *Session) WPM() int { return s.engine.WPM() }

// Accuracy returns the live accuracy percentage.
func (s *Session) Accuracy() int { return s.engine.Accuracy() }

// ElapsedSeconds returns whole seconds since the race started.
func (s *Session) ElapsedSeconds() int { return s.engine.ElapsedSeconds() }

// FormattedTime renders the elapsed time as m:ss.
func (s *Session) FormattedTime() string { return s.engine.FormattedTime() }

// Result returns the outcome of the finished race, or nil.
func (s *Session) Result() *Result { return s.result }

// Err returns the error that prevented the finished race from being saved.
func (s *Session) Err() error { return s.finishErr }
