package treeselect

import (
	"context"

	"github.com/goliatone/go-treeselect/pkg/activity"
)

// WithActivityHooks attaches hooks notified about layer merges, resolutions
// and overlays. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *settingsConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *settingsConfig) {
		cfg.activityChannel = channel
	}
}

// WithActivityVerbs restricts emitted events to the listed verbs.
func WithActivityVerbs(verbs ...string) Option {
	kept := append([]string(nil), verbs...)
	return func(cfg *settingsConfig) {
		cfg.activityVerbs = kept
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (s *Settings) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return cloneActivityHooks(s.cfg.activityHooks)
}

func (s *Settings) emit(ctx context.Context, event activity.Event) {
	if s == nil || len(s.cfg.activityHooks) == 0 {
		return
	}
	emitter := activity.NewEmitter(s.cfg.activityHooks, activity.Config{
		Enabled: true,
		Channel: s.cfg.activityChannel,
		Verbs:   s.cfg.activityVerbs,
	})
	if err := emitter.Emit(ctx, event); err != nil {
		s.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
			Engine: "activity",
			Expr:   event.Verb,
			Scope:  s.strongestScope().Name,
			Err:    err,
		})
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
