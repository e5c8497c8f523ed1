package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shadowDragonCloud/rosario/internal/types"
)

// WalkState is the state of a ScoreWalker.
type WalkState int

const (
	// ExpectLabel waits for a star label such as "5星".
	ExpectLabel WalkState = iota
	// ExpectValue waits for the percentage belonging to the pending label.
	ExpectValue
)

var starFields = map[string]func(*types.Score) *float64{
	"5星": func(s *types.Score) *float64 { return &s.FiveStarPct },
	"4星": func(s *types.Score) *float64 { return &s.FourStarPct },
	"3星": func(s *types.Score) *float64 { return &s.ThreeStarPct },
	"2星": func(s *types.Score) *float64 { return &s.TwoStarPct },
	"1星": func(s *types.Score) *float64 { return &s.OneStarPct },
}

// ScoreWalker reads the star distribution as alternating label and value
// texts. A bad pair is reported and dropped; the walk resets to
// ExpectLabel and carries on.
type ScoreWalker struct {
	score   *types.Score
	state   WalkState
	pending string
	dropped []error
}

// NewScoreWalker fills score as pairs complete.
func NewScoreWalker(score *types.Score) *ScoreWalker {
	return &ScoreWalker{score: score}
}

// State returns the current state.
func (w *ScoreWalker) State() WalkState {
	return w.state
}

// Feed consumes one text piece. Blank pieces are ignored.
func (w *ScoreWalker) Feed(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if w.state == ExpectLabel {
		w.pending = text
		w.state = ExpectValue
		return
	}

	label := w.pending
	w.pending = ""
	w.state = ExpectLabel

	value, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(text, "%", "")), 64)
	if err != nil {
		w.dropped = append(w.dropped, fmt.Errorf("star %q: bad value %q: %w", label, text, err))
		return
	}
	field, ok := starFields[label]
	if !ok {
		w.dropped = append(w.dropped, fmt.Errorf("unknown star label %q (value %q)", label, text))
		return
	}
	*field(w.score) = value
}

// Dropped returns one error per discarded pair, in walk order.
func (w *ScoreWalker) Dropped() []error {
	return w.dropped
}
