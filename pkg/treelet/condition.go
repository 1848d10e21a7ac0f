package treelet

import (
	"fmt"

	"socialbot-be/pkg/attributes"
)

// Condition tests one flag or state field. Any makes it a disjunction of
// nested conditions.
type Condition struct {
	Flag     string      `yaml:"flag"`
	State    string      `yaml:"state"`
	Is       string      `yaml:"is"`
	Equals   *string     `yaml:"equals"`
	OneOf    []string    `yaml:"one_of"`
	NotOneOf []string    `yaml:"not_one_of"`
	Any      []Condition `yaml:"any"`
}

func (c Condition) validate() error {
	if len(c.Any) > 0 {
		if c.Flag != "" || c.State != "" {
			return fmt.Errorf("condition with any must not name a field")
		}
		for _, sub := range c.Any {
			if err := sub.validate(); err != nil {
				return err
			}
		}
		return nil
	}
	if (c.Flag == "") == (c.State == "") {
		return fmt.Errorf("condition must name exactly one of flag or state")
	}
	ops := 0
	if c.Is != "" {
		ops++
		switch c.Is {
		case "set", "unset", "true", "false":
		default:
			return fmt.Errorf("unknown is %q", c.Is)
		}
	}
	if c.Equals != nil {
		ops++
	}
	if c.OneOf != nil {
		ops++
	}
	if c.NotOneOf != nil {
		ops++
	}
	if ops != 1 {
		return fmt.Errorf("condition on %s%s needs exactly one test", c.Flag, c.State)
	}
	return nil
}

func (c Condition) eval(flags, state attributes.Bag) bool {
	if len(c.Any) > 0 {
		for _, sub := range c.Any {
			if sub.eval(flags, state) {
				return true
			}
		}
		return false
	}

	var v attributes.Value
	if c.Flag != "" {
		v = flags[c.Flag]
	} else {
		v = state[c.State]
	}

	switch {
	case c.Is == "set":
		return v.Truthy()
	case c.Is == "unset":
		return !v.Truthy()
	case c.Is == "true":
		b, ok := v.AsBool()
		return ok && b
	case c.Is == "false":
		b, ok := v.AsBool()
		return !ok || !b
	case c.Equals != nil:
		return !v.IsNull() && v.String() == *c.Equals
	case c.OneOf != nil:
		return contains(c.OneOf, v.String())
	case c.NotOneOf != nil:
		return !contains(c.NotOneOf, v.String())
	}
	return false
}

func allHold(conds []Condition, flags, state attributes.Bag) bool {
	for _, c := range conds {
		if !c.eval(flags, state) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
