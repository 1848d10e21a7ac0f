package tracker

import (
	"encoding/json"
	"testing"

	"socialbot-be/pkg/annotation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pizza = annotation.Entity{Name: "Pizza", TalkableName: "pizza", Categories: []string{"food"}}
	paris = annotation.Entity{Name: "Paris", Categories: []string{"location"}}
	sushi = annotation.Entity{Name: "Sushi", Categories: []string{"food"}}
)

func linked(entities ...annotation.Entity) *annotation.EntityLinkerResult {
	r := &annotation.EntityLinkerResult{}
	for _, e := range entities {
		r.Spans = append(r.Spans, annotation.LinkedSpan{Span: e.Name, Candidates: []annotation.Entity{e}})
	}
	return r
}

func foodOnly(e annotation.Entity) bool { return e.HasCategory("food") }

func TestUpdateFromUser(t *testing.T) {
	tests := []struct {
		name          string
		start         *annotation.Entity
		sig           UserSignals
		want          *annotation.Entity
		wantInitiated bool
	}{
		{
			name:          "claimed top candidate is adopted",
			sig:           UserSignals{Linked: linked(pizza), Claimed: foodOnly},
			want:          &pizza,
			wantInitiated: true,
		},
		{
			name:  "unclaimed candidate keeps previous",
			start: &pizza,
			sig:   UserSignals{Linked: linked(paris), Claimed: foodOnly},
			want:  &pizza,
		},
		{
			name:  "only the top candidate counts",
			start: nil,
			sig:   UserSignals{Linked: linked(paris, pizza), Claimed: foodOnly},
			want:  nil,
		},
		{
			name:          "claimed candidate wins over topic switch",
			start:         &pizza,
			sig:           UserSignals{Linked: linked(sushi), Claimed: foodOnly, TopicSwitch: true},
			want:          &sushi,
			wantInitiated: true,
		},
		{
			name:  "topic switch clears when nothing is claimed",
			start: &pizza,
			sig:   UserSignals{Linked: linked(paris), Claimed: foodOnly, TopicSwitch: true},
			want:  nil,
		},
		{
			name:  "navigation to unclaimed topic clears",
			start: &pizza,
			sig:   UserSignals{Linked: linked(paris), Claimed: foodOnly, Navigation: true},
			want:  nil,
		},
		{
			name:  "absent linker keeps previous",
			start: &pizza,
			sig:   UserSignals{},
			want:  &pizza,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(State{Current: tt.start})
			tr.UpdateFromUser(3, tt.sig)

			if tt.want == nil {
				assert.Nil(t, tr.Current())
			} else {
				require.NotNil(t, tr.Current())
				assert.Equal(t, tt.want.Name, tr.Current().Name)
			}
			assert.Equal(t, tt.wantInitiated, tr.InitiatedThisTurn())
		})
	}
}

func TestTopicSwitchRecordsRejection(t *testing.T) {
	tr := New(State{Current: &pizza})
	tr.UpdateFromUser(2, UserSignals{TopicSwitch: true})
	assert.Equal(t, []string{"Pizza"}, tr.Rejected())
	assert.Equal(t, 2, tr.State().TurnOfLastChange)

	tr.UpdateFromUser(5, UserSignals{Linked: linked(pizza), Claimed: foodOnly})
	assert.Empty(t, tr.Rejected(), "raising the entity again lifts the rejection")
}

func TestUpdateFromProposal(t *testing.T) {
	tr := New(State{Current: &paris})
	tr.UpdateFromProposal(4, nil, SourceResponse)
	assert.Equal(t, "Paris", tr.Current().Name)

	tr.UpdateFromProposal(4, &pizza, SourceResponse)
	assert.Equal(t, "Pizza", tr.Current().Name)
	assert.Equal(t, []string{"Paris"}, tr.State().Finished)

	s := tr.State()
	require.Len(t, s.History, 1)
	assert.Equal(t, SourceResponse, s.History[0].Source)
}

func TestSameEntityAddsNoHistory(t *testing.T) {
	tr := New(State{})
	tr.UpdateFromProposal(1, &pizza, SourceResponse)
	tr.UpdateFromProposal(2, &annotation.Entity{Name: "pizza"}, SourcePrompt)
	assert.Len(t, tr.State().History, 1)
	assert.Equal(t, 1, tr.State().TurnOfLastChange)
}

func TestHistoryIsBounded(t *testing.T) {
	tr := New(State{})
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			tr.UpdateFromProposal(i, &pizza, SourceResponse)
		} else {
			tr.UpdateFromProposal(i, &paris, SourceResponse)
		}
	}
	assert.Len(t, tr.State().History, maxHistory)
}

func TestStateJSONRoundTrip(t *testing.T) {
	tr := New(State{})
	tr.UpdateFromUser(1, UserSignals{Linked: linked(pizza), Claimed: foodOnly})

	data, err := json.Marshal(tr.State())
	require.NoError(t, err)

	var back State
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, tr.State(), back)
}
