package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/goliatone/go-treeselect"
	"github.com/goliatone/go-treeselect/pkg/activity"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLevelFor(t *testing.T) {
	tests := map[int]zerolog.Level{
		-1: zerolog.WarnLevel,
		0:  zerolog.WarnLevel,
		1:  zerolog.InfoLevel,
		2:  zerolog.DebugLevel,
		5:  zerolog.TraceLevel,
	}
	for verbosity, want := range tests {
		if got := LevelFor(verbosity); got != want {
			t.Fatalf("LevelFor(%d) = %s, want %s", verbosity, got, want)
		}
	}
}

func TestSetupLoggerToSetsLevel(t *testing.T) {
	saved := log.Logger
	defer func() {
		log.Logger = saved
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}()

	var buf bytes.Buffer
	SetupLoggerTo(&buf, 1)
	logger := GetLogger("cli")
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["message"] != "shown" || lines[0]["component"] != "cli" {
		t.Fatalf("unexpected entry %v", lines[0])
	}
}

func TestEvaluatorLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	logger := EvaluatorLogger(zerolog.New(&buf))
	logger.LogEvaluation(treeselect.EvaluatorLogEvent{Engine: "expr", Expr: "logLevel + 1", Path: "Root.sorter"})
	logger.LogEvaluation(treeselect.EvaluatorLogEvent{Engine: "cel", Expr: "bad(", Err: errors.New("boom")})

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %d", len(lines))
	}
	if lines[0]["level"] != "debug" || lines[0]["path"] != "Root.sorter" {
		t.Fatalf("unexpected success entry %v", lines[0])
	}
	if lines[1]["level"] != "warn" || lines[1]["error"] != "boom" || lines[1]["engine"] != "cel" {
		t.Fatalf("unexpected failure entry %v", lines[1])
	}
}

func TestActivityHook(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	hook := ActivityHook(zerolog.New(&buf))
	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbOverrideSaved,
		ObjectType: activity.ObjectOverride,
		ObjectID:   "user/u42/treeselect",
		Metadata:   map[string]any{"etag": "abc"},
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	if lines[0]["verb"] != activity.VerbOverrideSaved || lines[0]["etag"] != "abc" {
		t.Fatalf("unexpected entry %v", lines[0])
	}
}

func TestGetLoggerUsesGlobalLogger(t *testing.T) {
	saved := log.Logger
	defer func() { log.Logger = saved }()

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	logger := GetLogger("state")
	logger.Warn().Msg("hello")
	if !strings.Contains(buf.String(), `"component":"state"`) {
		t.Fatalf("component missing: %s", buf.String())
	}
}
