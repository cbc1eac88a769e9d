// Package funnel models the landing page and quiz screens as explicit
// directed graphs. Each edge is an authored literal: the target step is never
// derived from the current step.
package funnel

import (
	"errors"
	"fmt"
	"sort"
)

type Step int

type Choice string

const (
	ChoiceContinue    Choice = "continue"
	ChoiceBack        Choice = "back"
	ChoiceYes         Choice = "yes"
	ChoiceNo          Choice = "no"
	ChoiceSubmitEmail Choice = "submit-email"
)

var ErrNoTransition = errors.New("no transition for choice")

type ScreenKind string

const (
	KindIntro    ScreenKind = "intro"
	KindText     ScreenKind = "text"
	KindQuestion ScreenKind = "question"
	KindEmail    ScreenKind = "email"
	KindPricing  ScreenKind = "pricing"
)

// Option is one selectable answer on a screen.
type Option struct {
	ID          Choice
	Text        string
	Description string
}

type Screen struct {
	Step        Step
	Kind        ScreenKind
	Title       string
	Subtitle    string
	Paragraphs  []string
	Highlight   string
	Options     []Option
	ActionLabel string
	BackLabel   string
	Amounts     []int
	Disclaimer  string
}

// HasBack reports whether the screen offers a back edge.
func (s Screen) HasBack() bool {
	return s.BackLabel != ""
}

type Transition struct {
	From   Step
	Choice Choice
}

type Edge struct {
	From   Step
	Choice Choice
	To     Step
}

// Flow is immutable once built.
type Flow struct {
	name    string
	locale  string
	entry   Step
	screens map[Step]Screen
	edges   map[Transition]Step
}

func NewFlow(name, locale string, entry Step, screens []Screen, edges map[Transition]Step) (*Flow, error) {
	f := &Flow{
		name:    name,
		locale:  locale,
		entry:   entry,
		screens: make(map[Step]Screen, len(screens)),
		edges:   make(map[Transition]Step, len(edges)),
	}
	for _, s := range screens {
		if _, dup := f.screens[s.Step]; dup {
			return nil, fmt.Errorf("flow %s: duplicate screen %d", name, s.Step)
		}
		f.screens[s.Step] = s
	}
	for t, to := range edges {
		if _, ok := f.screens[t.From]; !ok {
			return nil, fmt.Errorf("flow %s: edge from unknown screen %d", name, t.From)
		}
		f.edges[t] = to
	}
	return f, nil
}

func (f *Flow) Name() string   { return f.name }
func (f *Flow) Locale() string { return f.locale }
func (f *Flow) Entry() Step    { return f.entry }

// Screen returns the screen at step. Steps outside the flow render nothing.
func (f *Flow) Screen(step Step) (Screen, bool) {
	s, ok := f.screens[step]
	return s, ok
}

func (f *Flow) Next(from Step, choice Choice) (Step, error) {
	to, ok := f.edges[Transition{From: from, Choice: choice}]
	if !ok {
		return from, fmt.Errorf("%w: step %d, choice %q", ErrNoTransition, from, choice)
	}
	return to, nil
}

// Edges lists the whole graph ordered by source step then choice.
func (f *Flow) Edges() []Edge {
	out := make([]Edge, 0, len(f.edges))
	for t, to := range f.edges {
		out = append(out, Edge{From: t.From, Choice: t.Choice, To: to})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].Choice < out[j].Choice
	})
	return out
}

// Steps returns the authored screen steps in ascending order.
func (f *Flow) Steps() []Step {
	out := make([]Step, 0, len(f.screens))
	for s := range f.screens {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
