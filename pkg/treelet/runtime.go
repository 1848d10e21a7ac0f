// Package treelet runs the supernode graphs RGs author in YAML. A supernode
// is entered when its entry conditions hold over the RG state, runs an NLU
// step that produces flags, and takes the first branch whose conditions hold.
package treelet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/annotation"
	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/rg"

	"gopkg.in/yaml.v3"
)

const (
	MaxSteps        = 8
	DefaultStateKey = "cur_supernode"
)

var (
	ErrStepLimit        = errors.New("treelet: step limit reached")
	ErrUnknownSupernode = errors.New("treelet: unknown supernode")
)

// NLUFunc computes the flags a supernode's branches test.
type NLUFunc func(ctx context.Context, t *rg.Turn) (attributes.Bag, error)

type Branch struct {
	Name        string         `yaml:"name"`
	When        []Condition    `yaml:"when"`
	Response    string         `yaml:"response"`
	Prompt      string         `yaml:"prompt"`
	NeedsPrompt bool           `yaml:"needs_prompt"`
	AnswerType  string         `yaml:"answer_type"`
	Priority    string         `yaml:"priority"`
	SetState    map[string]any `yaml:"set_state"`
	SetUser     map[string]any `yaml:"set_user"`
	Next        string         `yaml:"next"`
	Goto        string         `yaml:"goto"`
	Decline     bool           `yaml:"decline"`

	response *template.Template
	prompt   *template.Template
	setState map[string]valueTemplate
	setUser  map[string]valueTemplate
	priority rg.Priority
}

type Supernode struct {
	Name        string         `yaml:"name"`
	Entry       []Condition    `yaml:"entry"`
	NLU         string         `yaml:"nlu"`
	Branches    []*Branch      `yaml:"branches"`
	SetOnFinish map[string]any `yaml:"set_on_finish"`

	setOnFinish map[string]valueTemplate
}

type document struct {
	Supernodes []*Supernode `yaml:"supernodes"`
}

// Data is what templates see.
type Data struct {
	State     map[string]any
	Flags     map[string]any
	User      map[string]any
	Entity    *annotation.Entity
	Utterance string
}

// Outcome is the rendered result of a turn through the graph.
type Outcome struct {
	Supernode   string
	Branch      string
	Text        string
	Prompt      string
	NeedsPrompt bool
	AnswerType  rg.AnswerType
	// Priority is PriorityNo unless the branch sets one.
	Priority    rg.Priority
	Delta       rg.Delta
	UserUpdates attributes.Bag
	Next        string
	Steps       int
}

type Runtime struct {
	rgName string
	nodes  []*Supernode
	byName map[string]*Supernode
	nlu    map[string]NLUFunc
	funcs  template.FuncMap
	logger logger.ILogger
}

type Option func(*Runtime)

func WithNLU(name string, fn NLUFunc) Option {
	return func(r *Runtime) { r.nlu[name] = fn }
}

// WithHelpers registers template helpers. Helpers must be pure.
func WithHelpers(funcs template.FuncMap) Option {
	return func(r *Runtime) {
		for k, v := range funcs {
			r.funcs[k] = v
		}
	}
}

// Load parses and validates a supernode graph.
func Load(rgName string, data []byte, log logger.ILogger, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		rgName: rgName,
		byName: map[string]*Supernode{},
		nlu:    map[string]NLUFunc{},
		funcs:  builtinFuncs(),
		logger: log,
	}
	for _, opt := range opts {
		opt(r)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("treelet %s: parse: %w", rgName, err)
	}
	if len(doc.Supernodes) == 0 {
		return nil, fmt.Errorf("treelet %s: no supernodes", rgName)
	}

	for _, n := range doc.Supernodes {
		if n.Name == "" {
			return nil, fmt.Errorf("treelet %s: supernode without a name", rgName)
		}
		if _, dup := r.byName[n.Name]; dup {
			return nil, fmt.Errorf("treelet %s: supernode %s defined twice", rgName, n.Name)
		}
		r.byName[n.Name] = n
		r.nodes = append(r.nodes, n)
	}
	for _, n := range r.nodes {
		if err := r.compile(n); err != nil {
			return nil, fmt.Errorf("treelet %s: supernode %s: %w", rgName, n.Name, err)
		}
	}
	return r, nil
}

func (r *Runtime) compile(n *Supernode) error {
	for _, c := range n.Entry {
		if err := c.validate(); err != nil {
			return err
		}
	}
	if n.NLU != "" {
		if _, ok := r.nlu[n.NLU]; !ok {
			return fmt.Errorf("nlu %q not registered", n.NLU)
		}
	}
	if len(n.Branches) == 0 {
		return fmt.Errorf("no branches")
	}

	var err error
	if n.setOnFinish, err = r.compileValues(n.Name+".set_on_finish", n.SetOnFinish); err != nil {
		return err
	}

	for i, b := range n.Branches {
		if b.Name == "" {
			b.Name = fmt.Sprintf("branch_%d", i)
		}
		for _, c := range b.When {
			if err := c.validate(); err != nil {
				return fmt.Errorf("branch %s: %w", b.Name, err)
			}
		}
		for _, target := range []string{b.Next, b.Goto} {
			if target != "" && r.byName[target] == nil {
				return fmt.Errorf("branch %s: %w %q", b.Name, ErrUnknownSupernode, target)
			}
		}
		if b.Decline || b.Goto != "" {
			continue
		}
		if strings.TrimSpace(b.Response) == "" {
			return fmt.Errorf("branch %s: empty response", b.Name)
		}
		if b.AnswerType != "" && !rg.AnswerType(b.AnswerType).Valid() {
			return fmt.Errorf("branch %s: unknown answer type %q", b.Name, b.AnswerType)
		}
		if b.Priority != "" {
			if b.priority, err = rg.ParsePriority(b.Priority); err != nil {
				return fmt.Errorf("branch %s: %w", b.Name, err)
			}
		}
		if b.response, err = r.parse(n.Name+"."+b.Name+".response", b.Response); err != nil {
			return err
		}
		if b.Prompt != "" {
			if b.prompt, err = r.parse(n.Name+"."+b.Name+".prompt", b.Prompt); err != nil {
				return err
			}
		}
		if b.setState, err = r.compileValues(n.Name+"."+b.Name+".set_state", b.SetState); err != nil {
			return err
		}
		if b.setUser, err = r.compileValues(n.Name+"."+b.Name+".set_user", b.SetUser); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) parse(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(r.funcs).Option("missingkey=error").Parse(text)
}

// Supernodes lists supernode names in authoring order.
func (r *Runtime) Supernodes() []string {
	out := make([]string, len(r.nodes))
	for i, n := range r.nodes {
		out[i] = n.Name
	}
	return out
}

func (r *Runtime) Has(name string) bool { return r.byName[name] != nil }

// Respond runs the graph for one turn. start forces the first supernode;
// otherwise the first supernode whose entry conditions hold is used. A nil
// outcome with a nil error means the RG declines the turn. Helper failures
// and panics come back as errors.
func (r *Runtime) Respond(ctx context.Context, t *rg.Turn, start string) (out *Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("treelet %s: panic: %v", r.rgName, p)
		}
		if err != nil {
			r.logger.Error("treelet", "Supernode failed", map[string]interface{}{
				"rg":    r.rgName,
				"error": err.Error(),
			})
		}
	}()

	cur := start
	if cur == "" {
		cur = r.entry(t.State)
		if cur == "" {
			return nil, nil
		}
	}

	for steps := 1; ; steps++ {
		if steps > MaxSteps {
			return nil, fmt.Errorf("%w after %d steps at %s", ErrStepLimit, MaxSteps, cur)
		}
		node := r.byName[cur]
		if node == nil {
			return nil, fmt.Errorf("%w %q", ErrUnknownSupernode, cur)
		}

		flags := attributes.Bag{}
		if node.NLU != "" {
			if flags, err = r.nlu[node.NLU](ctx, t); err != nil {
				return nil, fmt.Errorf("nlu %s: %w", node.NLU, err)
			}
		}

		branch := firstMatch(node.Branches, flags, t.State)
		if branch == nil || branch.Decline {
			return nil, nil
		}
		if branch.Goto != "" {
			cur = branch.Goto
			continue
		}

		out, err := r.render(t, node, branch, flags)
		if err != nil {
			return nil, err
		}
		out.Steps = steps
		return out, nil
	}
}

func (r *Runtime) entry(state attributes.Bag) string {
	for _, n := range r.nodes {
		if len(n.Entry) > 0 && allHold(n.Entry, nil, state) {
			return n.Name
		}
	}
	return ""
}

func firstMatch(branches []*Branch, flags, state attributes.Bag) *Branch {
	for _, b := range branches {
		if allHold(b.When, flags, state) {
			return b
		}
	}
	return nil
}

func (r *Runtime) render(t *rg.Turn, node *Supernode, b *Branch, flags attributes.Bag) (*Outcome, error) {
	data := Data{
		State:     t.State.Plain(),
		Flags:     flags.Plain(),
		User:      t.UserAttributes.Plain(),
		Entity:    t.CurrentEntity,
		Utterance: t.Utterance,
	}

	text, err := execute(b.response, data)
	if err != nil {
		return nil, err
	}
	var prompt string
	if b.prompt != nil {
		if prompt, err = execute(b.prompt, data); err != nil {
			return nil, err
		}
	}

	delta := rg.Delta{}
	for _, values := range []map[string]valueTemplate{node.setOnFinish, b.setState} {
		for k, vt := range values {
			v, err := vt.render(data)
			if err != nil {
				return nil, err
			}
			delta[k] = rg.Set(v)
		}
	}
	delta[DefaultStateKey] = rg.SetString(b.Next)

	user := attributes.Bag{}
	for k, vt := range b.setUser {
		v, err := vt.render(data)
		if err != nil {
			return nil, err
		}
		user[k] = v
	}

	answer := rg.AnswerType(b.AnswerType)
	if answer == "" {
		answer = rg.AnswerStatement
		if prompt != "" {
			answer = rg.AnswerQuestionSelfHandling
		}
	}

	return &Outcome{
		Supernode:   node.Name,
		Branch:      b.Name,
		Text:        Join(text, prompt),
		Prompt:      prompt,
		NeedsPrompt: b.NeedsPrompt,
		AnswerType:  answer,
		Priority:    b.priority,
		Delta:       delta,
		UserUpdates: user,
		Next:        b.Next,
	}, nil
}

func execute(tmpl *template.Template, data Data) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// valueTemplate is a set_state or set_user value: strings are templates,
// other scalars are used as written.
type valueTemplate struct {
	tmpl  *template.Template
	value attributes.Value
}

func (r *Runtime) compileValues(prefix string, in map[string]any) (map[string]valueTemplate, error) {
	out := make(map[string]valueTemplate, len(in))
	for k, raw := range in {
		if s, ok := raw.(string); ok && strings.Contains(s, "{{") {
			tmpl, err := r.parse(prefix+"."+k, s)
			if err != nil {
				return nil, err
			}
			out[k] = valueTemplate{tmpl: tmpl}
			continue
		}
		v, err := attributes.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", prefix, k, err)
		}
		out[k] = valueTemplate{value: v}
	}
	return out, nil
}

func (v valueTemplate) render(data Data) (attributes.Value, error) {
	if v.tmpl == nil {
		return v.value, nil
	}
	s, err := execute(v.tmpl, data)
	if err != nil {
		return attributes.Value{}, err
	}
	return attributes.String(strings.TrimSpace(s)), nil
}

var (
	spaces          = regexp.MustCompile(`\s+`)
	spaceBeforePunc = regexp.MustCompile(`\s+([.,!?;:])`)
)

// Join concatenates sentence parts with single spaces and no space before
// punctuation.
func Join(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	s := spaces.ReplaceAllString(strings.Join(kept, " "), " ")
	return spaceBeforePunc.ReplaceAllString(s, "$1")
}

func builtinFuncs() template.FuncMap {
	return template.FuncMap{
		"capitalize": Capitalize,
		"lower":      strings.ToLower,
	}
}

// Capitalize upper-cases the first letter of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
