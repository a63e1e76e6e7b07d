package runner

import (
	"errors"
	"fmt"
	"sort"
)

// Reporter names with a configuration block of their own.
const (
	ReporterProgress = "progress"
	ReporterDots     = "dots"
	ReporterJUnit    = "junit"
	ReporterHTML     = "html"
	ReporterCoverage = "coverage"
)

// ErrInvalidDescriptor is matched by every validation failure.
var ErrInvalidDescriptor = errors.New("runner: invalid descriptor")

// reporterPlugins maps reporters to the plugin that provides them.
var reporterPlugins = map[string]string{
	ReporterJUnit:    "karma-junit-reporter",
	ReporterHTML:     "karma-html-reporter",
	ReporterCoverage: "karma-coverage",
}

// Validate reports every problem with c joined into one error.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidDescriptor}, args...)...))
	}

	if c.Port < 1 || c.Port > 65535 {
		add("port %d out of range 1..65535", c.Port)
	}
	if len(c.Files) == 0 {
		add("files must not be empty")
	}
	for i, file := range c.Files {
		if file.Pattern == "" {
			add("files[%d] has an empty pattern", i)
		}
	}
	if len(c.Browsers) == 0 {
		add("browsers must not be empty")
	}
	if len(c.Frameworks) == 0 {
		add("frameworks must not be empty")
	}
	if _, ok := ParseLogLevel(string(c.LogLevel)); !ok {
		add("unknown logLevel %q", c.LogLevel)
	}
	for name, d := range map[string]int64{
		"captureTimeout":           int64(c.CaptureTimeout),
		"browserDisconnectTimeout": int64(c.BrowserDisconnectTimeout),
		"browserNoActivityTimeout": int64(c.BrowserNoActivityTimeout),
	} {
		if d < 0 {
			add("%s must not be negative", name)
		}
	}
	if c.BrowserDisconnectTolerance < 0 {
		add("browserDisconnectTolerance must not be negative")
	}

	plugins := make(map[string]bool, len(c.Plugins))
	for _, plugin := range c.Plugins {
		plugins[plugin] = true
	}
	for _, reporter := range c.Reporters {
		switch reporter {
		case ReporterJUnit:
			if c.JUnitReporter == nil || c.JUnitReporter.OutputFile == "" {
				add("reporter %q needs junitReporter.outputFile", reporter)
			}
		case ReporterHTML:
			if c.HTMLReporter == nil || c.HTMLReporter.OutputDir == "" {
				add("reporter %q needs htmlReporter.outputDir", reporter)
			}
		case ReporterCoverage:
			if c.CoverageReporter == nil || c.CoverageReporter.Type == "" {
				add("reporter %q needs coverageReporter.type", reporter)
			}
		}
		if plugin, ok := reporterPlugins[reporter]; ok && len(c.Plugins) > 0 && !plugins[plugin] {
			add("reporter %q needs plugin %q", reporter, plugin)
		}
	}
	for pattern, names := range c.Preprocessors {
		for _, name := range names {
			if plugin, ok := reporterPlugins[name]; ok && len(c.Plugins) > 0 && !plugins[plugin] {
				add("preprocessor %q for %q needs plugin %q", name, pattern, plugin)
			}
		}
	}

	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return errors.Join(errs...)
}
