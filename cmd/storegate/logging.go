package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/lmittmann/tint"
	"github.com/sagarc03/storegate"
)

// setupLogging installs the default slog logger. Logs go to stderr so command
// output on stdout stays machine readable.
func setupLogging(env, levelStr string) {
	slog.SetDefault(slog.New(newLogHandler(os.Stderr, env, levelStr)))

	log.SetFlags(0)
	log.SetOutput(
		slog.NewLogLogger(
			slog.Default().Handler(),
			slog.LevelInfo,
		).Writer(),
	)
}

// newLogHandler returns JSON with a "ts" key in prod and tint elsewhere, both
// wrapped in gatewayHandler. An empty level means info in prod, debug
// otherwise.
func newLogHandler(w io.Writer, env, levelStr string) slog.Handler {
	isProd := env == "prod" || env == "production"

	if levelStr == "" {
		if isProd {
			levelStr = "info"
		} else {
			levelStr = "debug"
		}
	}
	level := parseLevel(levelStr)

	var h slog.Handler
	if isProd {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339Nano))
				}
				return a
			},
		})
	} else {
		h = tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  true,
			TimeFormat: "15:04:05.000",
		})
	}

	return gatewayHandler{h}
}

// gatewayHandler adds the chi request id found in the context and, for the
// first error attribute, its storegate error kind unless a "kind" is already
// set.
type gatewayHandler struct {
	slog.Handler
}

func (h gatewayHandler) Handle(ctx context.Context, r slog.Record) error {
	var (
		hasKind  bool
		firstErr error
	)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "kind" {
			hasKind = true
		}
		if err, ok := a.Value.Any().(error); ok && firstErr == nil {
			firstErr = err
		}
		return true
	})

	id := middleware.GetReqID(ctx)
	if id == "" && (firstErr == nil || hasKind) {
		return h.Handler.Handle(ctx, r)
	}

	r = r.Clone()
	if id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if firstErr != nil && !hasKind {
		r.AddAttrs(slog.String("kind", storegate.ErrorKind(firstErr)))
	}

	return h.Handler.Handle(ctx, r)
}

func (h gatewayHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return gatewayHandler{h.Handler.WithAttrs(attrs)}
}

func (h gatewayHandler) WithGroup(name string) slog.Handler {
	return gatewayHandler{h.Handler.WithGroup(name)}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
