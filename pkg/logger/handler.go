package logger

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// zerologHandler implements slog.Handler on top of a zerolog.Logger, so the
// rest of the module can keep writing idiomatic slog call sites
// (logger.Info("msg", "key", val)) while every record actually flows
// through zerolog's leveled, structured writer.
type zerologHandler struct {
	logger zerolog.Logger
	level  slog.Level
	groups []string
}

func (h *zerologHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *zerologHandler) Handle(_ context.Context, r slog.Record) error {
	var evt *zerolog.Event
	switch {
	case r.Level >= slog.LevelError:
		evt = h.logger.Error()
	case r.Level >= slog.LevelWarn:
		evt = h.logger.Warn()
	case r.Level >= slog.LevelInfo:
		evt = h.logger.Info()
	default:
		evt = h.logger.Debug()
	}

	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		for _, g := range h.groups {
			key = g + "." + key
		}
		evt = evt.Interface(key, a.Value.Any())
		return true
	})

	evt.Msg(r.Message)
	return nil
}

func (h *zerologHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	ctx := h.logger.With()
	for _, a := range attrs {
		key := a.Key
		for _, g := range h.groups {
			key = g + "." + key
		}
		ctx = ctx.Interface(key, a.Value.Any())
	}
	return &zerologHandler{logger: ctx.Logger(), level: h.level, groups: h.groups}
}

func (h *zerologHandler) WithGroup(name string) slog.Handler {
	groups := make([]string, len(h.groups)+1)
	copy(groups, h.groups)
	groups[len(h.groups)] = name
	return &zerologHandler{logger: h.logger, level: h.level, groups: groups}
}
