// Package launch greets the user on the first turn of a session and asks for
// their name.
package launch

import (
	"context"
	_ "embed"
	"strings"

	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/regex"
	"socialbot-be/pkg/rg"
	"socialbot-be/pkg/treelet"
)

const Name = "LAUNCH"

const (
	greetingSupernode = "launch_greeting"
	keyAskedAgain     = "asked_name_again"
	userName          = "name"
)

//go:embed supernodes.yaml
var supernodes []byte

// notNames are single-word replies that are not names.
var notNames = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "sure": true, "okay": true, "ok": true,
	"no": true, "nope": true, "hi": true, "hello": true, "hey": true, "what": true,
	"why": true, "maybe": true, "fine": true, "good": true, "great": true, "not": true,
	"sorry": true, "well": true, "um": true, "uh": true, "hmm": true, "nothing": true,
	"alexa": true, "thanks": true, "cool": true, "nice": true, "sad": true, "tired": true,
}

// Classifier rejects offensive names.
type Classifier interface {
	Offensive(text string) bool
}

type ResponseGenerator struct {
	rg.Base
	runtime    *treelet.Runtime
	classifier Classifier
}

// New builds the RG. classifier may be nil.
func New(log logger.ILogger, classifier Classifier) (*ResponseGenerator, error) {
	r := &ResponseGenerator{Base: rg.NewBase(Name), classifier: classifier}
	runtime, err := treelet.Load(Name, supernodes, log,
		treelet.WithNLU("returning_user", r.returningUserNLU),
		treelet.WithNLU("name", r.nameNLU),
	)
	if err != nil {
		return nil, err
	}
	r.runtime = runtime
	return r, nil
}

func (r *ResponseGenerator) Schema() rg.State {
	return rg.State{
		treelet.DefaultStateKey: attributes.String(""),
		keyAskedAgain:           attributes.Bool(false),
	}
}

func (r *ResponseGenerator) GetResponse(ctx context.Context, t *rg.Turn) (*rg.ResponseProposal, error) {
	var (
		out *treelet.Outcome
		err error
	)
	switch {
	case t.Num == 0:
		out, err = r.runtime.Respond(ctx, t, greetingSupernode)
	case t.InControl(Name) && t.State.GetString(treelet.DefaultStateKey) != "":
		out, err = r.runtime.Respond(ctx, t, "")
	}
	if err != nil || out == nil {
		return nil, err
	}

	priority := out.Priority
	if priority == rg.PriorityNo {
		priority = rg.PriorityStrongContinue
	}
	return &rg.ResponseProposal{
		Text:        out.Text,
		Priority:    priority,
		NeedsPrompt: out.NeedsPrompt,
		Delta:       out.Delta,
		AnswerType:  out.AnswerType,
		UserUpdates: out.UserUpdates,
	}, nil
}

// NotChosen drops the name question once another RG has taken over.
func (r *ResponseGenerator) NotChosen(state rg.State) rg.State {
	out := state.Clone()
	out.Set(treelet.DefaultStateKey, attributes.String(""))
	return out
}

func (r *ResponseGenerator) returningUserNLU(_ context.Context, t *rg.Turn) (attributes.Bag, error) {
	flags := attributes.Bag{}
	if name := t.UserAttributes.GetString(userName); name != "" {
		flags[userName] = attributes.String(name)
	}
	return flags, nil
}

func (r *ResponseGenerator) nameNLU(_ context.Context, t *rg.Turn) (attributes.Bag, error) {
	types := t.ResponseTypes
	flags := attributes.Bag{
		"elsewhere": attributes.Bool(types.Has(rg.ResponseNavigation) || types.Has(rg.ResponseTopicSwitch) ||
			types.Has(rg.ResponseEndConversation)),
		"refused":  attributes.Bool(regex.DoesNotWantToSayNameTemplate.Matches(t.Utterance)),
		"said_yes": attributes.Bool(types.Has(rg.ResponseYes)),
	}
	if name := r.nameFrom(t.Utterance); name != "" {
		flags[userName] = attributes.String(name)
	}
	return flags, nil
}

// nameFrom extracts a name from "my name is ..." style replies or a single
// word that is not a common reply.
func (r *ResponseGenerator) nameFrom(utterance string) string {
	var name string
	if slots, ok := regex.MyNameIsTemplate.Execute(utterance); ok {
		name = slots["name"]
	} else if words := strings.Fields(regex.Normalize(utterance)); len(words) == 1 {
		name = words[0]
	}
	if name == "" || notNames[name] {
		return ""
	}
	if r.classifier != nil && r.classifier.Offensive(name) {
		return ""
	}
	return treelet.Capitalize(name)
}
