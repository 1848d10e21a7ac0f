package rg

import (
	"fmt"
	"sort"

	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/errkind"
)

// State is an RG's persisted state. Its keys are the RG's declared schema.
type State = attributes.Bag

// Update is one field of a Delta: either a new value or NoUpdate.
type Update struct {
	value attributes.Value
	set   bool
}

// NoUpdate leaves the field unchanged.
var NoUpdate = Update{}

func Set(v attributes.Value) Update { return Update{value: v, set: true} }

func SetString(s string) Update { return Set(attributes.String(s)) }
func SetBool(b bool) Update     { return Set(attributes.Bool(b)) }
func SetInt(i int64) Update     { return Set(attributes.Int(i)) }

func (u Update) IsSet() bool             { return u.set }
func (u Update) Value() attributes.Value { return u.value }

// Delta is the conditional state of a proposal. It is applied only when the
// proposal wins.
type Delta map[string]Update

// Fields returns the keys that carry a value.
func (d Delta) Fields() []string {
	var keys []string
	for k, u := range d {
		if u.set {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Validate checks every key against the schema.
func (d Delta) Validate(schema State) error {
	for k := range d {
		if _, ok := schema[k]; !ok {
			return fmt.Errorf("%w: delta sets unknown field %q", errkind.ErrMalformedProposal, k)
		}
	}
	return nil
}

// Apply returns old with every set field replaced. old is not modified, and
// applying the same delta twice gives the same result as applying it once.
func (d Delta) Apply(old State, schema State) (State, error) {
	if err := d.Validate(schema); err != nil {
		return nil, err
	}
	out := old.Clone()
	for k, u := range d {
		if u.set {
			out[k] = u.value
		}
	}
	return out, nil
}

// Merge overlays o on d; set fields of o win.
func (d Delta) Merge(o Delta) Delta {
	out := make(Delta, len(d)+len(o))
	for k, u := range d {
		out[k] = u
	}
	for k, u := range o {
		if u.set {
			out[k] = u
		} else if _, ok := out[k]; !ok {
			out[k] = u
		}
	}
	return out
}

// WithDefaults fills fields missing from s with the schema defaults and drops
// fields the schema no longer declares.
func WithDefaults(s State, schema State) State {
	out := make(State, len(schema))
	for k, def := range schema {
		if v, ok := s[k]; ok {
			out[k] = v
		} else {
			out[k] = def
		}
	}
	return out
}
