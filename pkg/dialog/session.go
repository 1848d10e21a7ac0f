package dialog

import (
	"encoding/json"
	"fmt"
	"time"

	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/rg"
	"socialbot-be/pkg/tracker"
)

// CreationTimeLayout formats the session version token.
const CreationTimeLayout = "2006-01-02T15:04:05.000000Z"

// SizeThreshold is the largest encoded session the store accepts.
const SizeThreshold = 400*1024 - 100

// Turn is one finished exchange.
type Turn struct {
	UserText   string        `json:"user_text"`
	BotText    string        `json:"bot_text"`
	ActiveRG   string        `json:"active_rg"`
	ResponseRG string        `json:"response_rg"`
	PromptRG   string        `json:"prompt_rg,omitempty"`
	PromptText string        `json:"prompt_text,omitempty"`
	AnswerType rg.AnswerType `json:"answer_type"`
	Connector  string        `json:"connector,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// SessionState is everything the controller persists between turns.
type SessionState struct {
	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id"`
	CreationTime string `json:"creation_date_time"`
	// NumTurns counts every turn, including ones trimmed from Turns.
	NumTurns         int                       `json:"num_turns"`
	Turns            []Turn                    `json:"turns"`
	EntityTracker    tracker.State             `json:"entity_tracker"`
	RGStates         map[string]attributes.Bag `json:"rg_states"`
	ShouldEndSession bool                      `json:"should_end_session"`
}

func NewSessionState(sessionID, userID string) *SessionState {
	return &SessionState{
		SessionID: sessionID,
		UserID:    userID,
		RGStates:  map[string]attributes.Bag{},
	}
}

func (s *SessionState) LastTurn() (Turn, bool) {
	if len(s.Turns) == 0 {
		return Turn{}, false
	}
	return s.Turns[len(s.Turns)-1], true
}

func (s *SessionState) LastBotUtterance() string {
	last, _ := s.LastTurn()
	return last.BotText
}

// RecentBotUtterances returns up to n bot utterances, newest last.
func (s *SessionState) RecentBotUtterances(n int) []string {
	start := len(s.Turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(s.Turns)-start)
	for _, t := range s.Turns[start:] {
		out = append(out, t.BotText)
	}
	return out
}

func (s *SessionState) History() []rg.TurnRecord {
	out := make([]rg.TurnRecord, len(s.Turns))
	for i, t := range s.Turns {
		out[i] = rg.TurnRecord{UserText: t.UserText, BotText: t.BotText, ResponseRG: t.ResponseRG, PromptRG: t.PromptRG}
	}
	return out
}

// Encode serializes the state, dropping the oldest turns and entity history
// until it fits under SizeThreshold. The newest turn is always kept.
func (s *SessionState) Encode() ([]byte, error) {
	for {
		data, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		if len(data) <= SizeThreshold {
			return data, nil
		}
		switch {
		case len(s.EntityTracker.History) > 0:
			s.EntityTracker.History = s.EntityTracker.History[1:]
		case len(s.Turns) > 1:
			s.Turns = s.Turns[1:]
		default:
			return nil, fmt.Errorf("session %s: %d bytes exceeds size threshold", s.SessionID, len(data))
		}
	}
}

func DecodeSessionState(data []byte) (*SessionState, error) {
	var s SessionState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.RGStates == nil {
		s.RGStates = map[string]attributes.Bag{}
	}
	return &s, nil
}

// NextCreationTime returns a token strictly after previous.
func NextCreationTime(now time.Time, previous string) string {
	t := now.UTC().Truncate(time.Microsecond)
	if prev, err := time.Parse(CreationTimeLayout, previous); err == nil && !t.After(prev) {
		t = prev.Add(time.Microsecond)
	}
	return t.Format(CreationTimeLayout)
}
