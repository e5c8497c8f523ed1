package parser

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// AccumulatorState is the state of a FieldAccumulator.
type AccumulatorState int

const (
	// Collecting accepts further siblings.
	Collecting AccumulatorState = iota
	// Stopped has seen the line break ending the field.
	Stopped
)

// FieldAccumulator gathers the value pieces that follow one label marker.
// Anchor text and bare text are kept in separate buckets so linked values
// (authors, publishers) come first in the result.
type FieldAccumulator struct {
	state   AccumulatorState
	anchors []string
	texts   []string
}

// State returns the current state.
func (a *FieldAccumulator) State() AccumulatorState {
	return a.state
}

// Feed consumes one sibling node and reports whether the accumulator
// still wants more.
func (a *FieldAccumulator) Feed(n *html.Node) bool {
	if a.state == Stopped {
		return false
	}

	switch n.Type {
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Br:
			a.state = Stopped
			return false
		case atom.A:
			if t, ok := firstText(n); ok {
				if v := CleanValue(t); v != "" {
					a.anchors = append(a.anchors, v)
				}
			}
		}
	case html.TextNode:
		if v := CleanValue(n.Data); v != "" {
			a.texts = append(a.texts, v)
		}
	}
	return true
}

// Values returns anchor values followed by text values.
func (a *FieldAccumulator) Values() []string {
	out := make([]string, 0, len(a.anchors)+len(a.texts))
	out = append(out, a.anchors...)
	return append(out, a.texts...)
}

// accumulateAfter walks the siblings following label until a line break.
func accumulateAfter(label *html.Node) []string {
	var acc FieldAccumulator
	for s := label.NextSibling; s != nil && acc.Feed(s); s = s.NextSibling {
	}
	return acc.Values()
}
