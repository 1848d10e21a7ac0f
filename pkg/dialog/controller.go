// Package dialog runs one conversation turn: it loads the session, annotates
// the utterance, collects proposals from the response generators, arbitrates
// and stitches the reply, then persists the new state.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/annotation"
	"socialbot-be/pkg/arbiter"
	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/errkind"
	"socialbot-be/pkg/rg"
	"socialbot-be/pkg/tracker"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const module = "dialog"

// User attribute keys the controller maintains itself.
const (
	UserKeyUserID        = "user_id"
	UserKeyNumSessions   = "num_sessions"
	UserKeyLastSessionID = "last_session_id"
)

type Config struct {
	TurnTimeout       time.Duration
	AnnotationTimeout time.Duration
	RGTimeout         time.Duration
	PersistTimeout    time.Duration

	// LaunchRG and FallbackRG are the only RGs asked on the first turn.
	LaunchRG   string
	FallbackRG string

	// Apology prefixes the replacement of a response the safety filter dropped.
	Apology string
	// SafeUtterances are used when nothing else survives.
	SafeUtterances []string
	Connectors     []string
	// RecentWindow is how many past bot utterances a response may not repeat.
	RecentWindow int
}

func DefaultConfig() Config {
	return Config{
		TurnTimeout:       6 * time.Second,
		AnnotationTimeout: 2 * time.Second,
		RGTimeout:         2 * time.Second,
		PersistTimeout:    2 * time.Second,
		LaunchRG:          "LAUNCH",
		FallbackRG:        "FALLBACK",
		Apology:           "Oops, sorry about that.",
		SafeUtterances: []string{
			"Sorry, I didn't quite catch that. Could you say it another way?",
			"Hmm, I'm not sure what to say. What else is on your mind?",
		},
		Connectors:   []string{"By the way,", "Anyway,", "So,"},
		RecentWindow: 3,
	}
}

// Request is one user turn.
type Request struct {
	SessionID string
	UserID    string
	Utterance string
	// CreationTime is the version token returned with the previous reply, or
	// "" on the first turn.
	CreationTime string
	ClientInfo   map[string]any
}

// Reply is what the user hears back.
type Reply struct {
	SessionID        string
	UserID           string
	Utterance        string
	CreationTime     string
	ShouldEndSession bool
	ResponseRG       string
	PromptRG         string
	TurnNum          int
	Latency          time.Duration
}

type Controller struct {
	cfg        Config
	rgs        []rg.ResponseGenerator
	registry   *annotation.Registry
	store      Store
	classifier arbiter.Classifier
	observers  []TurnObserver
	logger     logger.ILogger
	tracer     trace.Tracer
	now        func() time.Time
}

type Option func(*Controller)

// WithClassifier enables the offensive-content filter.
func WithClassifier(c arbiter.Classifier) Option {
	return func(ctl *Controller) { ctl.classifier = c }
}

func WithObserver(o TurnObserver) Option {
	return func(ctl *Controller) { ctl.observers = append(ctl.observers, o) }
}

func WithClock(now func() time.Time) Option {
	return func(ctl *Controller) { ctl.now = now }
}

// New checks that RG names are unique and that the launch and fallback RGs
// are registered.
func New(cfg Config, rgs []rg.ResponseGenerator, registry *annotation.Registry, store Store, log logger.ILogger, opts ...Option) (*Controller, error) {
	seen := make(map[string]bool, len(rgs))
	for _, g := range rgs {
		if seen[g.Name()] {
			return nil, fmt.Errorf("duplicate response generator %q", g.Name())
		}
		seen[g.Name()] = true
	}
	for _, name := range []string{cfg.LaunchRG, cfg.FallbackRG} {
		if !seen[name] {
			return nil, fmt.Errorf("response generator %q is not registered", name)
		}
	}
	if len(cfg.SafeUtterances) == 0 {
		cfg.SafeUtterances = DefaultConfig().SafeUtterances
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = DefaultConfig().RecentWindow
	}

	c := &Controller{
		cfg:      cfg,
		rgs:      rgs,
		registry: registry,
		store:    store,
		logger:   log,
		tracer:   otel.Tracer("socialbot-be/dialog"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// turn carries the per-turn working set.
type turn struct {
	num     int
	state   *SessionState
	user    attributes.Bag
	ann     *annotation.Context
	types   rg.ResponseTypes
	tracker *tracker.Tracker
	last    Turn
	client  map[string]any
	active  []rg.ResponseGenerator
}

// Execute runs one turn. It fails only when ctx is already done; every other
// failure degrades the reply instead.
func (c *Controller) Execute(ctx context.Context, req Request) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := c.now()

	ctx, span := c.tracer.Start(ctx, "dialog.Execute")
	defer span.End()

	turnCtx, cancel := context.WithTimeout(ctx, c.cfg.TurnTimeout)
	defer cancel()

	state, isNew := c.resolveSession(turnCtx, req)
	user := c.loadUser(turnCtx, state.UserID)
	userDelta := attributes.Bag{}
	if isNew {
		userDelta[UserKeyUserID] = attributes.String(state.UserID)
		userDelta[UserKeyNumSessions] = attributes.Int(user.GetInt(UserKeyNumSessions) + 1)
		userDelta[UserKeyLastSessionID] = attributes.String(state.SessionID)
		user = user.Merge(userDelta)
	}

	last, _ := state.LastTurn()
	tr := &turn{
		num:     state.NumTurns,
		state:   state,
		user:    user,
		tracker: tracker.New(state.EntityTracker),
		last:    last,
		client:  req.ClientInfo,
	}
	span.SetAttributes(
		attribute.String("session.id", state.SessionID),
		attribute.Int("turn.num", tr.num),
	)

	annCtx, annCancel := context.WithTimeout(turnCtx, c.cfg.AnnotationTimeout)
	defer annCancel()
	tr.ann = annotation.NewContext(annCtx, c.registry, annotation.Input{
		Utterance:        req.Utterance,
		PrevBotUtterance: last.BotText,
		History:          recentExchanges(state, c.cfg.RecentWindow),
	}, c.logger)
	defer tr.ann.Close()
	if req.Utterance != "" {
		tr.ann.Prefetch(annCtx)
	}

	tr.types = rg.ClassifyUtterance(annCtx, req.Utterance, tr.ann)
	tr.active = c.activeRGs(tr.num)
	if tr.num > 0 {
		linked, _ := tr.ann.EntityLinker(annCtx)
		tr.tracker.UpdateFromUser(tr.num, tracker.UserSignals{
			Linked:      linked,
			Claimed:     c.claimed(tr.active),
			TopicSwitch: tr.types.Has(rg.ResponseTopicSwitch),
			Navigation:  tr.types.Has(rg.ResponseNavigation),
		})
	}

	views := make(map[string]*rg.Turn, len(tr.active))
	for _, g := range tr.active {
		views[g.Name()] = c.view(turnCtx, tr, g, req.Utterance)
	}

	// Responses.
	responses := c.collectResponses(turnCtx, tr, views)
	arb := arbiter.New(
		arbiter.NonEmpty(),
		arbiter.NotOffensive(c.classifier),
		arbiter.NotRepeating(state.RecentBotUtterances(c.cfg.RecentWindow)),
	)
	actx := arbiter.Context{PreviousRG: last.ActiveRG, CurrentEntity: tr.tracker.Current()}
	ranked, dropped := arb.RankResponses(actx, responses)
	if replacements := c.handleDrops(turnCtx, tr, views, responses, dropped); len(replacements) > 0 {
		ranked, _ = arb.RankResponses(actx, append(ranked, replacements...))
	}

	var chosen arbiter.Response
	if len(ranked) > 0 {
		chosen = ranked[0]
	} else {
		chosen = c.lastResort(tr, responses)
	}

	// Prompt.
	userTracker := tr.tracker.State()
	var prompt arbiter.Prompt
	if chosen.Proposal != nil {
		tr.tracker.UpdateFromProposal(tr.num, chosen.Proposal.CurEntity, tracker.SourceResponse)
		if chosen.Proposal.NeedsPrompt {
			prompts := c.collectPrompts(turnCtx, tr, views, chosen.RG)
			parb := arb.WithPromptFilters(arbiter.NotEqual(last.PromptText))
			actx.CurrentEntity = tr.tracker.Current()
			var drops []arbiter.Drop
			prompt, _, drops = parb.SelectPrompt(actx, chosen, prompts)
			c.logDrops(tr, "prompt", drops)
		}
	}
	if prompt.Proposal != nil {
		tr.tracker.UpdateFromProposal(tr.num, prompt.Proposal.CurEntity, tracker.SourcePrompt)
	}

	record := c.stitch(tr, chosen, prompt)
	if record.BotText == "" || sameText(record.BotText, last.BotText) {
		c.logger.Warn(module, "No viable response, using safe utterance", map[string]interface{}{
			"session_id": state.SessionID,
			"turn":       tr.num,
			"error":      errkind.ErrNoViableResponse.Error(),
		})
		// The user never hears the proposals, so none of their updates apply.
		chosen, prompt = arbiter.Response{}, arbiter.Prompt{}
		tr.tracker = tracker.New(userTracker)
		record = Turn{BotText: c.safeUtterance(last.BotText), AnswerType: rg.AnswerEnding}
	}
	record.UserText = req.Utterance
	record.CreatedAt = start.UTC()

	// State updates.
	c.applyDeltas(tr, chosen, prompt)
	if chosen.Proposal != nil {
		userDelta = userDelta.Merge(chosen.Proposal.UserUpdates)
	}
	if prompt.Proposal != nil {
		userDelta = userDelta.Merge(prompt.Proposal.UserUpdates)
	}

	state.Turns = append(state.Turns, record)
	state.NumTurns++
	state.EntityTracker = tr.tracker.State()
	state.ShouldEndSession = chosen.Proposal != nil && chosen.Proposal.EndsSession
	previous := state.CreationTime
	state.CreationTime = NextCreationTime(c.now(), previous)

	c.persist(ctx, state, previous, userDelta)

	reply := &Reply{
		SessionID:        state.SessionID,
		UserID:           state.UserID,
		Utterance:        record.BotText,
		CreationTime:     state.CreationTime,
		ShouldEndSession: state.ShouldEndSession,
		ResponseRG:       record.ResponseRG,
		PromptRG:         record.PromptRG,
		TurnNum:          tr.num,
		Latency:          c.now().Sub(start),
	}
	span.SetAttributes(
		attribute.String("turn.response_rg", reply.ResponseRG),
		attribute.String("turn.prompt_rg", reply.PromptRG),
	)
	c.logger.Info(module, "Turn completed", map[string]interface{}{
		"session_id":  reply.SessionID,
		"turn":        reply.TurnNum,
		"response_rg": reply.ResponseRG,
		"prompt_rg":   reply.PromptRG,
		"latency_ms":  reply.Latency.Milliseconds(),
	})
	c.notify(ctx, reply)
	return reply, nil
}

// resolveSession loads the session the request continues. A missing session
// starts fresh under the same id; a stale or unreadable one starts fresh
// under a new id so the other writer's history is left alone.
func (c *Controller) resolveSession(ctx context.Context, req Request) (*SessionState, bool) {
	if req.CreationTime == "" {
		return NewSessionState(req.SessionID, req.UserID), true
	}
	s, err := c.store.LoadSession(ctx, req.SessionID, req.CreationTime)
	switch {
	case err == nil:
		if s.UserID == "" {
			s.UserID = req.UserID
		}
		return s, false
	case errors.Is(err, errkind.ErrNotFound):
		c.logger.Info(module, "Session not found, starting a new one", map[string]interface{}{
			"session_id": req.SessionID,
		})
		return NewSessionState(req.SessionID, req.UserID), true
	default:
		fresh := NewSessionState(uuid.NewString(), req.UserID)
		c.logger.Warn(module, "Cannot continue session, starting a new one", map[string]interface{}{
			"session_id":     req.SessionID,
			"new_session_id": fresh.SessionID,
			"error":          err.Error(),
			"kind":           errkind.Name(err),
		})
		return fresh, true
	}
}

func (c *Controller) loadUser(ctx context.Context, userID string) attributes.Bag {
	user, err := c.store.LoadUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, errkind.ErrNotFound) {
			c.logger.Warn(module, "Failed to load user attributes", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
		return attributes.Bag{}
	}
	if user == nil {
		return attributes.Bag{}
	}
	return user
}

func (c *Controller) activeRGs(num int) []rg.ResponseGenerator {
	if num > 0 {
		return c.rgs
	}
	var out []rg.ResponseGenerator
	for _, g := range c.rgs {
		if g.Name() == c.cfg.LaunchRG || g.Name() == c.cfg.FallbackRG {
			out = append(out, g)
		}
	}
	return out
}

func (c *Controller) claimed(active []rg.ResponseGenerator) func(annotation.Entity) bool {
	return func(e annotation.Entity) bool {
		for _, g := range active {
			if _, ok := g.TreeletForEntity(e); ok {
				return true
			}
		}
		return false
	}
}

// view builds the RG's copy of the turn.
func (c *Controller) view(ctx context.Context, tr *turn, g rg.ResponseGenerator, utterance string) *rg.Turn {
	t := &rg.Turn{
		Num:                     tr.num,
		Utterance:               utterance,
		State:                   rg.WithDefaults(tr.state.RGStates[g.Name()], g.Schema()),
		Annotations:             tr.ann,
		CurrentEntity:           tr.tracker.Current(),
		EntityInitiatedThisTurn: tr.tracker.InitiatedThisTurn(),
		RejectedEntities:        tr.tracker.Rejected(),
		LastRGInControl:         tr.last.ActiveRG,
		LastAnswerType:          tr.last.AnswerType,
		History:                 tr.state.History(),
		UserAttributes:          tr.user.Clone(),
		ClientInfo:              tr.client,
	}
	types, err := call(ctx, c.cfg.RGTimeout, func(ctx context.Context) (rg.ResponseTypes, error) {
		return g.IdentifyResponseTypes(ctx, t), nil
	})
	if err != nil {
		c.logRGError(tr, g.Name(), "IdentifyResponseTypes", err)
		types = rg.ResponseTypes{}
		for k := range tr.types {
			types.Add(k)
		}
	}
	t.ResponseTypes = types
	return t
}

func (c *Controller) collectResponses(ctx context.Context, tr *turn, views map[string]*rg.Turn) []arbiter.Response {
	var out []arbiter.Response
	for _, g := range tr.active {
		t := views[g.Name()]
		p, err := call(ctx, c.cfg.RGTimeout, func(ctx context.Context) (*rg.ResponseProposal, error) {
			return g.GetResponse(ctx, t)
		})
		if err != nil {
			c.logRGError(tr, g.Name(), "GetResponse", err)
			continue
		}
		if p = c.checkResponse(tr, g, p); p != nil {
			out = append(out, arbiter.Response{RG: g.Name(), Proposal: p})
		}
	}
	return out
}

// checkResponse normalizes p, demotes a strong continuation when the user
// asked to change topic, and drops p when it does not match the RG's schema.
func (c *Controller) checkResponse(tr *turn, g rg.ResponseGenerator, p *rg.ResponseProposal) *rg.ResponseProposal {
	if p == nil {
		return nil
	}
	p.Normalize()
	if p.Priority == rg.PriorityStrongContinue && tr.types.Has(rg.ResponseTopicSwitch) {
		p.Priority = rg.PriorityWeakContinue
	}
	if err := p.Validate(g.Schema()); err != nil {
		c.logRGError(tr, g.Name(), "GetResponse", err)
		return nil
	}
	if p.Priority == rg.PriorityNo {
		return nil
	}
	return p
}

// handleDrops logs dropped responses and asks the RGs whose response the
// safety filter rejected for a replacement.
func (c *Controller) handleDrops(ctx context.Context, tr *turn, views map[string]*rg.Turn, responses []arbiter.Response, dropped []arbiter.Drop) []arbiter.Response {
	c.logDrops(tr, "response", dropped)
	var out []arbiter.Response
	for _, d := range dropped {
		if !errors.Is(d.Reason, errkind.ErrSafetyRejection) {
			continue
		}
		g, rejected := c.find(tr.active, d.RG), proposalOf(responses, d.RG)
		if g == nil || rejected == nil {
			continue
		}
		p, err := call(ctx, c.cfg.RGTimeout, func(ctx context.Context) (*rg.ResponseProposal, error) {
			return g.HandleRejection(ctx, views[g.Name()], rejected), nil
		})
		if err != nil {
			c.logRGError(tr, g.Name(), "HandleRejection", err)
			continue
		}
		if p == nil {
			continue
		}
		p.Text = joinSentences(c.cfg.Apology, p.Text)
		p.Priority = rejected.Priority
		if p = c.checkResponse(tr, g, p); p != nil {
			out = append(out, arbiter.Response{RG: g.Name(), Proposal: p})
		}
	}
	return out
}

// lastResort returns the fallback RG's proposal when it is usable even though
// it lost to filters, or an empty response.
func (c *Controller) lastResort(tr *turn, responses []arbiter.Response) arbiter.Response {
	p := proposalOf(responses, c.cfg.FallbackRG)
	if p == nil || p.Text == "" || sameText(p.Text, tr.last.BotText) {
		return arbiter.Response{}
	}
	if c.classifier != nil && c.classifier.Offensive(p.Text) {
		return arbiter.Response{}
	}
	return arbiter.Response{RG: c.cfg.FallbackRG, Proposal: p}
}

// collectPrompts asks every active RG except the responder for a prompt. The
// fallback RG may prompt after its own response.
func (c *Controller) collectPrompts(ctx context.Context, tr *turn, views map[string]*rg.Turn, responder string) []arbiter.Prompt {
	var out []arbiter.Prompt
	for _, g := range tr.active {
		if g.Name() == responder && responder != c.cfg.FallbackRG {
			continue
		}
		t := views[g.Name()]
		t.CurrentEntity = tr.tracker.Current()
		p, err := call(ctx, c.cfg.RGTimeout, func(ctx context.Context) (*rg.PromptProposal, error) {
			return g.GetPrompt(ctx, t)
		})
		if err != nil {
			c.logRGError(tr, g.Name(), "GetPrompt", err)
			continue
		}
		if p == nil {
			continue
		}
		p.Normalize()
		if err := p.Validate(g.Schema()); err != nil {
			c.logRGError(tr, g.Name(), "GetPrompt", err)
			continue
		}
		out = append(out, arbiter.Prompt{RG: g.Name(), Proposal: p})
	}
	return out
}

// applyDeltas updates every active RG's state: winners apply their deltas,
// response first, and the rest get their not-chosen update.
func (c *Controller) applyDeltas(tr *turn, chosen arbiter.Response, prompt arbiter.Prompt) {
	for _, g := range tr.active {
		name, schema := g.Name(), g.Schema()
		state := rg.WithDefaults(tr.state.RGStates[name], schema)
		won := false
		if chosen.Proposal != nil && chosen.RG == name {
			state = c.apply(tr, name, state, schema, chosen.Proposal.Delta)
			won = true
		}
		if prompt.Proposal != nil && prompt.RG == name {
			state = c.apply(tr, name, state, schema, prompt.Proposal.Delta)
			won = true
		}
		if u, ok := g.(rg.NotChosenUpdater); ok && !won {
			state = u.NotChosen(state)
		}
		tr.state.RGStates[name] = state
	}
}

func (c *Controller) apply(tr *turn, name string, state, schema rg.State, d rg.Delta) rg.State {
	next, err := d.Apply(state, schema)
	if err != nil {
		c.logRGError(tr, name, "Delta", err)
		return state
	}
	return next
}

func (c *Controller) safeUtterance(previous string) string {
	for _, u := range c.cfg.SafeUtterances {
		if !sameText(u, previous) {
			return u
		}
	}
	return c.cfg.SafeUtterances[0]
}

// persist saves the session and user attributes. It runs even when the turn
// deadline has passed; failures are logged and the reply still goes out.
func (c *Controller) persist(ctx context.Context, state *SessionState, previous string, userDelta attributes.Bag) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.PersistTimeout)
	defer cancel()

	if err := c.store.SaveSession(ctx, state, previous); err != nil {
		c.logger.Error(module, "Failed to save session", map[string]interface{}{
			"session_id": state.SessionID,
			"error":      err.Error(),
			"kind":       errkind.Name(err),
		})
	}
	if len(userDelta) == 0 {
		return
	}
	if err := c.store.MergeUser(ctx, state.UserID, userDelta); err != nil {
		c.logger.Error(module, "Failed to save user attributes", map[string]interface{}{
			"user_id": state.UserID,
			"error":   err.Error(),
		})
	}
}

func (c *Controller) notify(ctx context.Context, reply *Reply) {
	if len(c.observers) == 0 {
		return
	}
	ev := TurnEvent{
		SessionID:        reply.SessionID,
		UserID:           reply.UserID,
		TurnNum:          reply.TurnNum,
		ResponseRG:       reply.ResponseRG,
		PromptRG:         reply.PromptRG,
		CreationTime:     reply.CreationTime,
		ShouldEndSession: reply.ShouldEndSession,
		Latency:          reply.Latency,
	}
	ctx = context.WithoutCancel(ctx)
	for _, o := range c.observers {
		o.TurnCompleted(ctx, ev)
	}
}

func (c *Controller) find(rgs []rg.ResponseGenerator, name string) rg.ResponseGenerator {
	for _, g := range rgs {
		if g.Name() == name {
			return g
		}
	}
	return nil
}

func (c *Controller) logRGError(tr *turn, name, op string, err error) {
	c.logger.Warn(module, "Response generator failed", map[string]interface{}{
		"session_id": tr.state.SessionID,
		"turn":       tr.num,
		"rg":         name,
		"op":         op,
		"error":      err.Error(),
		"kind":       errkind.Name(err),
	})
}

func (c *Controller) logDrops(tr *turn, what string, drops []arbiter.Drop) {
	for _, d := range drops {
		c.logger.Debug(module, "Proposal dropped", map[string]interface{}{
			"session_id": tr.state.SessionID,
			"turn":       tr.num,
			"rg":         d.RG,
			"proposal":   what,
			"reason":     d.Reason.Error(),
		})
	}
}

func proposalOf(responses []arbiter.Response, name string) *rg.ResponseProposal {
	for _, r := range responses {
		if r.RG == name {
			return r.Proposal
		}
	}
	return nil
}

// call runs fn under its own timeout, turning panics into errors.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %v", errkind.ErrTimeout, ctx.Err())
	}
}

func recentExchanges(s *SessionState, n int) []string {
	start := len(s.Turns) - n
	if start < 0 {
		start = 0
	}
	var out []string
	for _, t := range s.Turns[start:] {
		out = append(out, t.UserText, t.BotText)
	}
	return out
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}
