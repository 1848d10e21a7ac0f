// Package tracker keeps the entity the conversation is currently about.
package tracker

import (
	"strings"

	"socialbot-be/pkg/annotation"
)

const maxHistory = 20

const (
	SourceUser     = "user"
	SourceResponse = "response"
	SourcePrompt   = "prompt"
	SourceCleared  = "cleared"
)

type HistoryEntry struct {
	Turn   int                `json:"turn"`
	Entity *annotation.Entity `json:"entity"`
	Source string             `json:"source"`
}

// State is the serialized tracker.
type State struct {
	Current           *annotation.Entity `json:"cur_entity"`
	History           []HistoryEntry     `json:"history"`
	TurnOfLastChange  int                `json:"turn_of_last_change"`
	InitiatedThisTurn bool               `json:"initiated_this_turn"`
	Finished          []string           `json:"talked_finished"`
	Rejected          []string           `json:"talked_rejected"`
}

// UserSignals is what the tracker reads from the user utterance.
type UserSignals struct {
	Linked *annotation.EntityLinkerResult
	// Claimed reports whether some RG has a treelet for the entity.
	Claimed     func(annotation.Entity) bool
	TopicSwitch bool
	Navigation  bool
}

type Tracker struct {
	s State
}

func New(s State) *Tracker {
	return &Tracker{s: s}
}

func (t *Tracker) State() State { return t.s }

func (t *Tracker) Current() *annotation.Entity {
	if t.s.Current == nil {
		return nil
	}
	e := *t.s.Current
	return &e
}

func (t *Tracker) InitiatedThisTurn() bool { return t.s.InitiatedThisTurn }

func (t *Tracker) Rejected() []string { return append([]string(nil), t.s.Rejected...) }

// UpdateFromUser runs before proposals are collected. The linker's top
// candidate is adopted when an RG claims it. Otherwise a topic switch request
// or an explicit request for an unclaimed topic clears the entity.
func (t *Tracker) UpdateFromUser(turn int, sig UserSignals) {
	t.s.InitiatedThisTurn = false

	if top, ok := sig.Linked.Top(); ok && sig.Claimed != nil && sig.Claimed(top) {
		t.set(turn, &top, SourceUser)
		t.s.InitiatedThisTurn = true
		t.s.Rejected = remove(t.s.Rejected, top.Name)
		return
	}

	if sig.TopicSwitch {
		if t.s.Current != nil {
			t.s.Rejected = appendUnique(t.s.Rejected, t.s.Current.Name)
		}
		t.set(turn, nil, SourceCleared)
		return
	}

	if sig.Navigation {
		t.set(turn, nil, SourceCleared)
	}
}

// UpdateFromProposal adopts the entity a winning proposal set. A nil entity
// keeps the current one.
func (t *Tracker) UpdateFromProposal(turn int, e *annotation.Entity, source string) {
	if e == nil {
		return
	}
	t.set(turn, e, source)
}

func (t *Tracker) set(turn int, e *annotation.Entity, source string) {
	if t.s.Current.SameAs(e) {
		return
	}
	if t.s.Current != nil && source != SourceCleared {
		t.s.Finished = appendUnique(t.s.Finished, t.s.Current.Name)
	}
	var cp *annotation.Entity
	if e != nil {
		v := *e
		cp = &v
	}
	t.s.Current = cp
	t.s.TurnOfLastChange = turn
	t.s.History = append(t.s.History, HistoryEntry{Turn: turn, Entity: cp, Source: source})
	if len(t.s.History) > maxHistory {
		t.s.History = t.s.History[len(t.s.History)-maxHistory:]
	}
}

func appendUnique(list []string, name string) []string {
	for _, n := range list {
		if strings.EqualFold(n, name) {
			return list
		}
	}
	return append(list, name)
}

func remove(list []string, name string) []string {
	out := list[:0:0]
	for _, n := range list {
		if !strings.EqualFold(n, name) {
			out = append(out, n)
		}
	}
	return out
}
