package activity

import (
	"context"
	"strings"
)

// DefaultChannel is stamped on events emitted without a channel.
const DefaultChannel = "treeselect"

// Config controls which events an Emitter forwards and the defaults it
// stamps on them.
type Config struct {
	Enabled bool
	Channel string
	// Domain is recorded as metadata "domain" on events that carry none.
	Domain string
	// Verbs limits emission to the listed verbs. Empty forwards every verb.
	Verbs []string
}

// Emitter fans settings events out to hooks.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
	domain  string
	verbs   map[string]struct{}
}

// NewEmitter constructs an emitter from hooks and configuration.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	var verbs map[string]struct{}
	for _, verb := range cfg.Verbs {
		if verb = strings.TrimSpace(verb); verb == "" {
			continue
		}
		if verbs == nil {
			verbs = map[string]struct{}{}
		}
		verbs[verb] = struct{}{}
	}
	live := cloneHooks(hooks)
	return &Emitter{
		hooks:   live,
		enabled: cfg.Enabled && len(live) > 0,
		channel: channel,
		domain:  strings.TrimSpace(cfg.Domain),
		verbs:   verbs,
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled && len(e.hooks) > 0
}

// Accepts reports whether verb passes the emitter's verb filter.
func (e *Emitter) Accepts(verb string) bool {
	if e == nil {
		return false
	}
	if len(e.verbs) == 0 {
		return true
	}
	_, ok := e.verbs[strings.TrimSpace(verb)]
	return ok
}

// Emit stamps the default channel and domain, then forwards the event to
// every hook. Filtered verbs are dropped silently.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() || !e.Accepts(event.Verb) {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if e.domain != "" {
		if _, ok := event.Metadata["domain"]; !ok {
			event.Metadata = cloneMap(event.Metadata)
			if event.Metadata == nil {
				event.Metadata = map[string]any{}
			}
			event.Metadata["domain"] = e.domain
		}
	}
	return e.hooks.Notify(ctx, event)
}

func cloneHooks(hooks Hooks) Hooks {
	var live Hooks
	for _, hook := range hooks {
		if hook != nil {
			live = append(live, hook)
		}
	}
	return live
}
