package dialog

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"socialbot-be/pkg/arbiter"
	"socialbot-be/pkg/rg"
)

// stitch joins the chosen response and prompt into the turn record. A
// connector goes between them when the prompt changes the subject to another
// RG.
func (c *Controller) stitch(tr *turn, chosen arbiter.Response, prompt arbiter.Prompt) Turn {
	if chosen.Proposal == nil {
		return Turn{}
	}
	rec := Turn{
		BotText:    chosen.Proposal.Text,
		ActiveRG:   chosen.RG,
		ResponseRG: chosen.RG,
		AnswerType: chosen.Proposal.AnswerType,
	}
	if prompt.Proposal == nil {
		return rec
	}

	text := prompt.Proposal.Text
	if prompt.RG != chosen.RG {
		if rec.Connector = nextConnector(c.cfg.Connectors, lastConnector(tr.state)); rec.Connector != "" {
			text = rec.Connector + " " + lowerFirst(text)
		}
	}
	rec.BotText = joinSentences(rec.BotText, text)
	rec.ActiveRG = prompt.RG
	rec.PromptRG = prompt.RG
	rec.PromptText = prompt.Proposal.Text
	rec.AnswerType = prompt.Proposal.AnswerType
	if rec.AnswerType == "" {
		rec.AnswerType = rg.AnswerQuestionSelfHandling
	}
	return rec
}

func lastConnector(s *SessionState) string {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Connector != "" {
			return s.Turns[i].Connector
		}
	}
	return ""
}

// nextConnector rotates through options so the same connector is never used
// twice in a row.
func nextConnector(options []string, last string) string {
	if len(options) == 0 {
		return ""
	}
	for i, o := range options {
		if o == last {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

// lowerFirst lowercases the first letter unless it starts the pronoun "I".
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	if r == 'I' && (len(s) == size || s[size] == ' ' || s[size] == '\'') {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func joinSentences(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
