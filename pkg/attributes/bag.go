package attributes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Bag is a string-keyed collection of values.
type Bag map[string]Value

func (b Bag) Get(key string) (Value, bool) {
	v, ok := b[key]
	return v, ok
}

// GetString returns the string stored at key, or "" when absent or not a string.
func (b Bag) GetString(key string) string {
	s, _ := b[key].AsString()
	return s
}

func (b Bag) GetBool(key string) bool {
	v, _ := b[key].AsBool()
	return v
}

func (b Bag) GetInt(key string) int64 {
	v, _ := b[key].AsInt()
	return v
}

func (b Bag) Set(key string, v Value) { b[key] = v }

func (b Bag) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b Bag) Clone() Bag {
	out := make(Bag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Merge returns the union of b and delta; keys present in delta win.
func (b Bag) Merge(delta Bag) Bag {
	out := b.Clone()
	for k, v := range delta {
		out[k] = v
	}
	return out
}

func (b Bag) Equal(o Bag) bool {
	if len(b) != len(o) {
		return false
	}
	for k, v := range b {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Plain converts the bag into plain Go maps for templates and JSON payloads.
func (b Bag) Plain() map[string]any {
	out := make(map[string]any, len(b))
	for k, v := range b {
		out[k] = v.Interface()
	}
	return out
}

func (b Bag) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("{}"), nil
	}
	return Map(b).MarshalJSON()
}

func (b *Bag) UnmarshalJSON(data []byte) error {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	if v.IsNull() {
		*b = Bag{}
		return nil
	}
	m, ok := v.AsMap()
	if !ok {
		return fmt.Errorf("attributes: expected object, got %s", v.Kind())
	}
	*b = Bag(m)
	return nil
}

// FromMap converts a plain map, such as a decoded JSON object, into a Bag.
func FromMap(m map[string]any) (Bag, error) {
	v, err := FromAny(m)
	if err != nil {
		return nil, err
	}
	out, _ := v.AsMap()
	if out == nil {
		out = map[string]Value{}
	}
	return Bag(out), nil
}

// Decode reads a JSON object into a Bag.
func Decode(data []byte) (Bag, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Bag{}, nil
	}
	var b Bag
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return b, nil
}
