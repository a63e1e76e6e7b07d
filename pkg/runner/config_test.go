package runner_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-treeselect/pkg/runner"
)

func TestLegacyCIDescriptor(t *testing.T) {
	cfg := runner.LegacyCI()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "../", cfg.BasePath)
	assert.Equal(t, []string{"jasmine", "requirejs"}, cfg.Frameworks)
	assert.Len(t, cfg.Files, 31)
	assert.Equal(t, "cdf/js-lib/shims.js", cfg.Files[0].Pattern)
	assert.Equal(t, "test-js/legacy/main.js", cfg.Files[len(cfg.Files)-1].Pattern)
	assert.Equal(t, []string{"progress", "junit", "html", "coverage"}, cfg.Reporters)
	assert.Equal(t, 9876, cfg.Port)
	assert.Equal(t, runner.LogInfo, cfg.LogLevel)
	assert.Equal(t, []string{"PhantomJS"}, cfg.Browsers)
	assert.Equal(t, time.Minute, cfg.CaptureTimeout)
	assert.Equal(t, 10*time.Second, cfg.BrowserDisconnectTimeout)
	assert.Equal(t, 1, cfg.BrowserDisconnectTolerance)
	assert.Equal(t, time.Minute, cfg.BrowserNoActivityTimeout)
	assert.True(t, cfg.SingleRun)
	assert.False(t, cfg.AutoWatch)
	assert.Equal(t, "cobertura", cfg.CoverageReporter.Type)
	assert.Equal(t, "unit", cfg.JUnitReporter.Suite)

	flagged := 0
	for _, file := range cfg.Files {
		if !file.IsPlain() {
			flagged++
			require.NotNil(t, file.Included)
			assert.True(t, *file.Included)
		}
	}
	assert.Equal(t, 2, flagged)
}

func TestLegacyCIReturnsFreshValues(t *testing.T) {
	first := runner.LegacyCI()
	first.Browsers[0] = "Chrome"
	first.JUnitReporter.Suite = "changed"
	first.Preprocessors["cdf/js/*.js"][0] = "none"

	second := runner.LegacyCI()
	assert.Equal(t, "PhantomJS", second.Browsers[0])
	assert.Equal(t, "unit", second.JUnitReporter.Suite)
	assert.Equal(t, []string{"coverage"}, second.Preprocessors["cdf/js/*.js"])
}

func TestCloneDetaches(t *testing.T) {
	cfg := runner.LegacyCI()
	clone := cfg.Clone()
	*clone.Files[27].Included = false
	clone.HTMLReporter.OutputDir = "elsewhere"

	assert.True(t, *cfg.Files[27].Included)
	assert.Equal(t, "bin/test-reports-legacy/karma_html", cfg.HTMLReporter.OutputDir)
}

func TestDescriptorShape(t *testing.T) {
	desc := runner.LegacyCI().Descriptor()

	assert.Equal(t, int64(60000), desc["captureTimeout"])
	assert.Equal(t, "LOG_INFO", desc["logLevel"])
	files := desc["files"].([]any)
	assert.Equal(t, "cdf/js-lib/shims.js", files[0])
	assert.Equal(t, map[string]any{"pattern": "test-js/legacy/**/*-spec*.js", "included": true}, files[29])
	assert.Equal(t, map[string]any{"outputFile": "bin/test-reports-legacy/test-results.xml", "suite": "unit"}, desc["junitReporter"])

	cfg := runner.LegacyCI()
	cfg.HTMLReporter = nil
	_, ok := cfg.Descriptor()["htmlReporter"]
	assert.False(t, ok)
}

func TestArtifacts(t *testing.T) {
	assert.Equal(t, []string{
		"bin/test-reports-legacy/coverage/reports/",
		"bin/test-reports-legacy/karma_html",
		"bin/test-reports-legacy/test-results.xml",
	}, runner.LegacyCI().Artifacts())

	cfg := runner.LegacyCI()
	cfg.Reporters = []string{"progress", "junit"}
	assert.Equal(t, []string{"bin/test-reports-legacy/test-results.xml"}, cfg.Artifacts())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  runner.LogLevel
		ok    bool
	}{
		{"LOG_INFO", runner.LogInfo, true},
		{"config.LOG_WARN", runner.LogWarn, true},
		{"debug", runner.LogDebug, true},
		{" Disable ", runner.LogDisable, true},
		{"loud", runner.LogLevel("loud"), false},
	}
	for _, tc := range tests {
		got, ok := runner.ParseLogLevel(tc.input)
		assert.Equal(t, tc.ok, ok, tc.input)
		assert.Equal(t, tc.want, got, tc.input)
	}
}
