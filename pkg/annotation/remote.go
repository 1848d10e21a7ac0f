package annotation

import (
	"context"
	"fmt"

	"socialbot-be/pkg/remote"
)

// Caller is the part of *remote.Client annotators use.
type Caller interface {
	Call(ctx context.Context, service string, payload map[string]any) (*remote.Result, error)
}

type remoteAnnotator struct {
	name     Name
	service  string
	requires []Name
	caller   Caller
	payload  func(in Input, deps Deps) map[string]any
	decode   func(res *remote.Result) (any, error)
}

func (a *remoteAnnotator) Name() Name       { return a.name }
func (a *remoteAnnotator) Requires() []Name { return a.requires }

func (a *remoteAnnotator) Annotate(ctx context.Context, in Input, deps Deps) (any, error) {
	res, err := a.caller.Call(ctx, a.service, a.payload(in, deps))
	if err != nil {
		return nil, err
	}
	v, err := a.decode(res)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", a.name, err)
	}
	return v, nil
}

func utterancePayload(in Input, _ Deps) map[string]any {
	return map[string]any{"utterance": in.Utterance}
}

func contextPayload(in Input, _ Deps) map[string]any {
	history := in.History
	if history == nil {
		history = []string{}
	}
	return map[string]any{
		"utterance":          in.Utterance,
		"prev_bot_utterance": in.PrevBotUtterance,
		"history":            history,
	}
}

// DefaultAnnotators builds the standard remote annotator set. Each one talks
// to the service registered under its own name.
func DefaultAnnotators(c Caller) []Annotator {
	return []Annotator{
		&remoteAnnotator{
			name: Segmenter, service: string(Segmenter), caller: c,
			payload: utterancePayload,
			decode: func(res *remote.Result) (any, error) {
				var out struct {
					Segments []string `json:"segments"`
				}
				err := res.Decode(&out)
				return out.Segments, err
			},
		},
		&remoteAnnotator{
			name: DialogAct, service: string(DialogAct), caller: c,
			requires: []Name{Segmenter},
			payload: func(in Input, deps Deps) map[string]any {
				return map[string]any{
					"utterances":         deps[Segmenter],
					"prev_bot_utterance": in.PrevBotUtterance,
				}
			},
			decode: func(res *remote.Result) (any, error) {
				var out struct {
					DialogActs DialogActs `json:"dialog_acts"`
				}
				err := res.Decode(&out)
				return out.DialogActs, err
			},
		},
		&remoteAnnotator{
			name: EntityLinker, service: string(EntityLinker), caller: c,
			payload: contextPayload,
			decode: func(res *remote.Result) (any, error) {
				var out EntityLinkerResult
				err := res.Decode(&out)
				return &out, err
			},
		},
		&remoteAnnotator{
			name: Coref, service: string(Coref), caller: c,
			payload: contextPayload,
			decode: func(res *remote.Result) (any, error) {
				var out struct {
					Rewritten string `json:"rewritten"`
				}
				err := res.Decode(&out)
				return out.Rewritten, err
			},
		},
		&remoteAnnotator{
			name: Question, service: string(Question), caller: c,
			payload: utterancePayload,
			decode: func(res *remote.Result) (any, error) {
				var out QuestionResult
				err := res.Decode(&out)
				return out, err
			},
		},
		&remoteAnnotator{
			name: Emotion, service: string(Emotion), caller: c,
			payload: utterancePayload,
			decode: func(res *remote.Result) (any, error) {
				var out EmotionResult
				err := res.Decode(&out)
				return out, err
			},
		},
		&remoteAnnotator{
			name: CoreNLP, service: string(CoreNLP), caller: c,
			payload: utterancePayload,
			decode: func(res *remote.Result) (any, error) {
				var out CoreNLPResult
				err := res.Decode(&out)
				return out, err
			},
		},
	}
}

// Registered keeps only the annotators whose service is configured.
func Registered(annotators []Annotator, has func(service string) bool) []Annotator {
	var out []Annotator
	kept := map[Name]bool{}
	for _, a := range annotators {
		if ra, ok := a.(*remoteAnnotator); ok && !has(ra.service) {
			continue
		}
		ok := true
		for _, dep := range a.Requires() {
			if !kept[dep] {
				ok = false
				break
			}
		}
		if ok {
			kept[a.Name()] = true
			out = append(out, a)
		}
	}
	return out
}
