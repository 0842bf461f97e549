// Package router classifies inbound messages into intents and produces the
// reply. Rules are tried in a fixed order and the first match wins, so a
// later rule never sees a message an earlier rule accepted.
package router

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"jarvis/internal/convctx"
	"jarvis/internal/logging"
	"jarvis/internal/notes"
	"jarvis/internal/places"
	"jarvis/internal/textnorm"
	"jarvis/internal/transcribe"
)

// Knowledge is an optional local answer source consulted before any other
// rule.
type Knowledge interface {
	Lookup(text string) (string, bool)
}

// Answerer produces open-question answers and image lists.
type Answerer interface {
	Answer(ctx context.Context, query string) string
	Images(ctx context.Context, topic string) string
}

// PlaceResolver resolves places and reads their time and weather.
type PlaceResolver interface {
	Resolve(ctx context.Context, name string) (places.Place, error)
	LocalTime(p places.Place) (time.Time, bool)
	CurrentWeather(ctx context.Context, p places.Place) (*places.Weather, error)
}

// Config holds the router's collaborators. Knowledge, Transcriber and
// Media are optional.
type Config struct {
	Notes     notes.Store
	Contexts  *convctx.Store
	Answers   Answerer
	Places    PlaceResolver
	Knowledge Knowledge

	Transcriber transcribe.Transcriber
	Media       MediaFetcher

	// Location is the time zone for calendar questions. Defaults to Local.
	Location  *time.Location
	ListLimit int
	Now       func() time.Time
}

// Router dispatches messages through its rule table.
type Router struct {
	notes       notes.Store
	contexts    *convctx.Store
	answers     Answerer
	places      PlaceResolver
	knowledge   Knowledge
	transcriber transcribe.Transcriber
	media       MediaFetcher
	loc         *time.Location
	listLimit   int
	now         func() time.Time
	rules       []Rule
}

// New creates a Router.
func New(cfg Config) (*Router, error) {
	if cfg.Notes == nil {
		return nil, fmt.Errorf("router requires a note store")
	}
	if cfg.Contexts == nil {
		return nil, fmt.Errorf("router requires a context store")
	}
	r := &Router{
		notes:       cfg.Notes,
		contexts:    cfg.Contexts,
		answers:     cfg.Answers,
		places:      cfg.Places,
		knowledge:   cfg.Knowledge,
		transcriber: cfg.Transcriber,
		media:       cfg.Media,
		loc:         cfg.Location,
		listLimit:   cfg.ListLimit,
		now:         cfg.Now,
	}
	if r.loc == nil {
		r.loc = time.Local
	}
	if r.listLimit <= 0 {
		r.listLimit = 5
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.rules = r.buildRules()
	return r, nil
}

// Rules returns the dispatch table in priority order.
func (r *Router) Rules() []Rule {
	return r.rules
}

// Route answers one text message. It never panics and always returns a
// reply.
func (r *Router) Route(ctx context.Context, sender, text string) (reply string) {
	defer r.recoverInto(&reply, sender)
	return r.route(ctx, sender, text, convctx.OriginText)
}

func (r *Router) recoverInto(reply *string, sender string) {
	if rec := recover(); rec != nil {
		logging.RoutingError("panic handling message from %s: %v\n%s", sender, rec, debug.Stack())
		*reply = ErrorReply
	}
}

func (r *Router) route(ctx context.Context, sender, text string, origin convctx.Origin) string {
	timer := logging.StartTimer(logging.CategoryRouting, "route")
	defer timer.Stop()

	m := newMessage(sender, text, origin)
	rule, payload := r.classify(m)
	m.Payload = payload
	logging.RoutingDebug("sender=%s intent=%s origin=%s", sender, rule.Intent, origin)

	r.remember(m, rule.Context)

	reply, err := rule.Handle(ctx, m)
	if err != nil {
		logging.RoutingError("intent %s failed for %s: %v", rule.Intent, sender, err)
		return ErrorReply
	}
	return reply
}

// Classify returns the intent the router would pick for text without
// running any handler.
func (r *Router) Classify(text string) (Intent, string) {
	rule, payload := r.classify(newMessage("", text, convctx.OriginText))
	return rule.Intent, payload
}

func (r *Router) classify(m *Message) (Rule, string) {
	for _, rule := range r.rules {
		if payload, ok := rule.Match(m); ok {
			return rule, payload
		}
	}
	// The fallback rule matches everything; this is unreachable.
	last := r.rules[len(r.rules)-1]
	return last, m.Text
}

// remember applies a rule's context policy before its handler runs.
func (r *Router) remember(m *Message, policy ContextPolicy) {
	if m.Sender == "" {
		return
	}
	switch policy {
	case RememberInput:
		if m.Text != "" {
			r.contexts.Set(m.Sender, m.Text, m.Origin)
		}
	case RememberPayload:
		if m.Payload != "" {
			r.contexts.Set(m.Sender, m.Payload, m.Origin)
		}
	case KeepContext:
	}
}

// Message is a normalized inbound message as seen by the rules.
type Message struct {
	Sender  string
	Text    string // whitespace-normalized, original casing
	Lower   string
	Folded  string
	Words   []string
	Origin  convctx.Origin
	Payload string
}

func newMessage(sender, text string, origin convctx.Origin) *Message {
	clean := textnorm.Clean(text)
	return &Message{
		Sender: sender,
		Text:   clean,
		Lower:  textnorm.Lower(clean),
		Folded: textnorm.Fold(clean),
		Words:  textnorm.Words(clean),
		Origin: origin,
	}
}
