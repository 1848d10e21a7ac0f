package annotation

import (
	"sort"
	"strings"
)

// Name identifies an annotator and the annotation it produces.
type Name string

const (
	Segmenter    Name = "segmenter"
	DialogAct    Name = "dialogact"
	EntityLinker Name = "entitylinker"
	Coref        Name = "coref"
	Question     Name = "question"
	Emotion      Name = "emotion"
	CoreNLP      Name = "corenlp"
)

// Input is everything an annotator may look at. Annotators keep no memory
// between turns.
type Input struct {
	Utterance        string
	PrevBotUtterance string
	History          []string
}

// Entity is a linked knowledge-base entity.
type Entity struct {
	Name         string   `json:"name"`
	TalkableName string   `json:"talkable_name"`
	IsPlural     bool     `json:"is_plural"`
	Categories   []string `json:"categories"`
}

// Talkable is the form of the entity used in bot utterances.
func (e Entity) Talkable() string {
	if e.TalkableName != "" {
		return e.TalkableName
	}
	return strings.ToLower(e.Name)
}

func (e Entity) HasCategory(category string) bool {
	for _, c := range e.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// SameAs compares entities by canonical name. Nil only matches nil.
func (e *Entity) SameAs(o *Entity) bool {
	if e == nil || o == nil {
		return e == nil && o == nil
	}
	return strings.EqualFold(e.Name, o.Name)
}

type LinkedSpan struct {
	Span       string   `json:"span"`
	Score      float64  `json:"score"`
	Candidates []Entity `json:"candidates"`
}

// EntityLinkerResult lists linked spans, best span first.
type EntityLinkerResult struct {
	Spans []LinkedSpan `json:"spans"`
}

// Top returns the first candidate of the best span.
func (r *EntityLinkerResult) Top() (Entity, bool) {
	if r == nil {
		return Entity{}, false
	}
	for _, s := range r.Spans {
		if len(s.Candidates) > 0 {
			return s.Candidates[0], true
		}
	}
	return Entity{}, false
}

// Find returns the best-ranked candidate accepted by keep.
func (r *EntityLinkerResult) Find(keep func(Entity) bool) (Entity, bool) {
	if r == nil {
		return Entity{}, false
	}
	for _, s := range r.Spans {
		for _, c := range s.Candidates {
			if keep(c) {
				return c, true
			}
		}
	}
	return Entity{}, false
}

// DialogActs maps dialog act labels to probabilities.
type DialogActs map[string]float64

// Top returns the most likely label; ties go to the lexicographically smaller one.
func (d DialogActs) Top() (string, float64) {
	labels := make([]string, 0, len(d))
	for l := range d {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	best, bestP := "", -1.0
	for _, l := range labels {
		if d[l] > bestP {
			best, bestP = l, d[l]
		}
	}
	return best, bestP
}

type QuestionResult struct {
	IsQuestion  bool    `json:"is_question"`
	Probability float64 `json:"probability"`
}

type EmotionResult struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

type CoreNLPResult struct {
	Nouns       []string `json:"nouns"`
	NounPhrases []string `json:"noun_phrases"`
	POS         []string `json:"pos"`
}
