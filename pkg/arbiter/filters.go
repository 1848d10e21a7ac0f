package arbiter

import (
	"fmt"
	"strings"

	"socialbot-be/pkg/errkind"
)

// Candidate is what a filter sees of a proposal.
type Candidate struct {
	RG     string
	Text   string
	Forced bool
}

// Filter returns an error wrapping an errkind sentinel when c must be discarded.
type Filter func(c Candidate) error

// NonEmpty drops proposals without text.
func NonEmpty() Filter {
	return func(c Candidate) error {
		if strings.TrimSpace(c.Text) == "" {
			return errkind.ErrEmptyText
		}
		return nil
	}
}

// Classifier is satisfied by *safety.Filter.
type Classifier interface {
	Offensive(text string) bool
}

// NotOffensive drops proposals the classifier flags.
func NotOffensive(cls Classifier) Filter {
	return func(c Candidate) error {
		if cls != nil && cls.Offensive(c.Text) {
			return fmt.Errorf("%w: %s proposal flagged", errkind.ErrSafetyRejection, c.RG)
		}
		return nil
	}
}

// NotRepeating drops proposals identical to one of the recent bot utterances.
// Forced proposals are exempt.
func NotRepeating(recent []string) Filter {
	seen := make(map[string]bool, len(recent))
	for _, r := range recent {
		seen[normalize(r)] = true
	}
	return func(c Candidate) error {
		if !c.Forced && seen[normalize(c.Text)] {
			return fmt.Errorf("%w: %s repeats a recent utterance", errkind.ErrRepetition, c.RG)
		}
		return nil
	}
}

// NotEqual drops proposals identical to text, forced or not.
func NotEqual(text string) Filter {
	want := normalize(text)
	return func(c Candidate) error {
		if want != "" && normalize(c.Text) == want {
			return fmt.Errorf("%w: %s repeats the previous prompt", errkind.ErrRepetition, c.RG)
		}
		return nil
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
