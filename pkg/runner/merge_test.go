package runner_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-treeselect/pkg/runner"
)

func TestMergeOverlaysNonZeroFields(t *testing.T) {
	base := runner.LegacyCI()
	merged, err := runner.Merge(base, runner.Config{
		Browsers:       []string{"ChromeHeadless"},
		Port:           9877,
		CaptureTimeout: 2 * time.Minute,
		Preprocessors:  map[string][]string{"lib/*.js": {"coverage"}},
		JUnitReporter:  &runner.JUnitReporter{Suite: "legacy"},
	}, runner.Config{
		Port: 9878,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ChromeHeadless"}, merged.Browsers)
	assert.Equal(t, 9878, merged.Port)
	assert.Equal(t, 2*time.Minute, merged.CaptureTimeout)
	assert.Len(t, merged.Preprocessors, 3)
	assert.Equal(t, []string{"coverage"}, merged.Preprocessors["lib/*.js"])
	assert.Equal(t, "legacy", merged.JUnitReporter.Suite)
	assert.Equal(t, "bin/test-reports-legacy/test-results.xml", merged.JUnitReporter.OutputFile)

	// zero values never override
	assert.True(t, merged.SingleRun)
	assert.Equal(t, "../", merged.BasePath)
	assert.Len(t, merged.Files, 31)
}

func TestMergeLeavesInputsUntouched(t *testing.T) {
	base := runner.LegacyCI()
	override := runner.Config{
		JUnitReporter: &runner.JUnitReporter{Suite: "legacy"},
		Preprocessors: map[string][]string{"cdf/js/*.js": {"none"}},
	}
	merged, err := runner.Merge(base, override)
	require.NoError(t, err)

	merged.Browsers[0] = "Safari"
	merged.Preprocessors["cdf/js/*.js"][0] = "changed"

	assert.Equal(t, runner.LegacyCI(), base)
	assert.Equal(t, []string{"none"}, override.Preprocessors["cdf/js/*.js"])
	assert.Empty(t, override.JUnitReporter.OutputFile)
}
