package runner

import (
	"sort"
	"strings"
	"time"
)

// LogLevel is one of the runner's config.LOG_* constants.
type LogLevel string

const (
	LogDisable LogLevel = "LOG_DISABLE"
	LogError   LogLevel = "LOG_ERROR"
	LogWarn    LogLevel = "LOG_WARN"
	LogInfo    LogLevel = "LOG_INFO"
	LogDebug   LogLevel = "LOG_DEBUG"
)

// LogLevels lists the accepted levels, quietest first.
func LogLevels() []LogLevel {
	return []LogLevel{LogDisable, LogError, LogWarn, LogInfo, LogDebug}
}

// ParseLogLevel accepts "LOG_INFO", "config.LOG_INFO" or "info" in any case.
func ParseLogLevel(value string) (LogLevel, bool) {
	name := strings.ToUpper(strings.TrimSpace(value))
	name = strings.TrimPrefix(name, "CONFIG.")
	if !strings.HasPrefix(name, "LOG_") {
		name = "LOG_" + name
	}
	for _, level := range LogLevels() {
		if string(level) == name {
			return level, true
		}
	}
	return LogLevel(value), false
}

// FilePattern is one entry of the files list. Nil flags keep the runner's
// defaults (all true).
type FilePattern struct {
	Pattern  string `koanf:"pattern"`
	Included *bool  `koanf:"included"`
	Served   *bool  `koanf:"served"`
	Watched  *bool  `koanf:"watched"`
}

// IsPlain reports whether the pattern carries no flags and can be written as
// a bare string.
func (p FilePattern) IsPlain() bool {
	return p.Included == nil && p.Served == nil && p.Watched == nil
}

// CoverageReporter configures the "coverage" reporter.
type CoverageReporter struct {
	Type string `koanf:"type"`
	Dir  string `koanf:"dir"`
}

// JUnitReporter configures the "junit" reporter.
type JUnitReporter struct {
	OutputFile string `koanf:"outputFile"`
	Suite      string `koanf:"suite"`
}

// HTMLReporter configures the "html" reporter.
type HTMLReporter struct {
	OutputDir    string `koanf:"outputDir"`
	TemplatePath string `koanf:"templatePath"`
}

// Config is the runner descriptor. Durations are written as milliseconds.
// Hostname is a list, a bare string in a descriptor file decodes to one entry.
type Config struct {
	BasePath                   string              `koanf:"basePath"`
	Frameworks                 []string            `koanf:"frameworks"`
	Files                      []FilePattern       `koanf:"files"`
	Exclude                    []string            `koanf:"exclude"`
	Preprocessors              map[string][]string `koanf:"preprocessors"`
	Reporters                  []string            `koanf:"reporters"`
	CoverageReporter           *CoverageReporter   `koanf:"coverageReporter"`
	JUnitReporter              *JUnitReporter      `koanf:"junitReporter"`
	HTMLReporter               *HTMLReporter       `koanf:"htmlReporter"`
	Hostname                   []string            `koanf:"hostname"`
	Port                       int                 `koanf:"port"`
	Colors                     bool                `koanf:"colors"`
	LogLevel                   LogLevel            `koanf:"logLevel"`
	AutoWatch                  bool                `koanf:"autoWatch"`
	Browsers                   []string            `koanf:"browsers"`
	CaptureTimeout             time.Duration       `koanf:"captureTimeout"`
	BrowserDisconnectTimeout   time.Duration       `koanf:"browserDisconnectTimeout"`
	BrowserDisconnectTolerance int                 `koanf:"browserDisconnectTolerance"`
	BrowserNoActivityTimeout   time.Duration       `koanf:"browserNoActivityTimeout"`
	SingleRun                  bool                `koanf:"singleRun"`
	Plugins                    []string            `koanf:"plugins"`
}

// Bool returns a pointer to v, for FilePattern flags.
func Bool(v bool) *bool {
	return &v
}

// LegacyCI returns the descriptor of the legacy continuous-integration run:
// Jasmine with RequireJS on PhantomJS, single run, progress, JUnit, HTML and
// Cobertura coverage reports under bin/test-reports-legacy.
func LegacyCI() Config {
	return Config{
		BasePath:   "../",
		Frameworks: []string{"jasmine", "requirejs"},
		Files: []FilePattern{
			{Pattern: "cdf/js-lib/shims.js"},
			{Pattern: "cdf/js-lib/pen-shim.js"},
			{Pattern: "test-js/legacy/testUtils.js"},
			{Pattern: "cdf/js/wd.js"},
			{Pattern: "cdf/js-lib/json.js"},
			{Pattern: "cdf/js-lib/jQuery/jquery.js"},
			{Pattern: "cdf/js-lib/jQuery/jquery.ui.js"},
			{Pattern: "cdf/js-lib/blockUI/jquery.blockUI.js"},
			{Pattern: "cdf/js-lib/uriQueryParser/jquery-queryParser.js"},
			{Pattern: "cdf/js-lib/underscore/underscore.js"},
			{Pattern: "cdf/js-lib/backbone/backbone.js"},
			{Pattern: "cdf/js-lib/mustache/mustache.js"},
			{Pattern: "cdf/js-lib/moment/moment.js"},
			{Pattern: "cdf/js-lib/base/Base.js"},
			{Pattern: "../cdf-pentaho5/cdf/js/cdf-base.js"},
			{Pattern: "cdf/js/Dashboards.Main.js"},
			{Pattern: "cdf/js/Dashboards.Query.js"},
			{Pattern: "cdf/js/Dashboards.Bookmarks.js"},
			{Pattern: "cdf/js/Dashboards.Startup.js"},
			{Pattern: "cdf/js/Dashboards.Utils.js"},
			{Pattern: "cdf/js/Dashboards.Legacy.js"},
			{Pattern: "cdf/js/Dashboards.Notifications.js"},
			{Pattern: "cdf/js/Dashboards.RefreshEngine.js"},
			{Pattern: "cdf/js/components/core.js"},
			{Pattern: "cdf/js/components/input.js"},
			{Pattern: "cdf/js/queries/coreQueries.js"},
			{Pattern: "cdf/js/components/simpleautocomplete.js"},
			{Pattern: "../cdf-pentaho-base/cdf/js/**/*.js", Included: Bool(true)},
			{Pattern: "test-js/legacy/lib/test-components.js"},
			{Pattern: "test-js/legacy/**/*-spec*.js", Included: Bool(true)},
			{Pattern: "test-js/legacy/main.js"},
		},
		Exclude: []string{"../cdf-pentaho-base/cdf/js/components/ccc.js"},
		Preprocessors: map[string][]string{
			"cdf/js/*.js":            {"coverage"},
			"cdf/js/components/*.js": {"coverage"},
		},
		Reporters: []string{"progress", "junit", "html", "coverage"},
		CoverageReporter: &CoverageReporter{
			Type: "cobertura",
			Dir:  "bin/test-reports-legacy/coverage/reports/",
		},
		JUnitReporter: &JUnitReporter{
			OutputFile: "bin/test-reports-legacy/test-results.xml",
			Suite:      "unit",
		},
		HTMLReporter: &HTMLReporter{
			OutputDir:    "bin/test-reports-legacy/karma_html",
			TemplatePath: "node_modules/karma-html-reporter/jasmine_template.html",
		},
		Hostname:                   []string{"localhost"},
		Port:                       9876,
		Colors:                     true,
		LogLevel:                   LogInfo,
		AutoWatch:                  false,
		Browsers:                   []string{"PhantomJS"},
		CaptureTimeout:             60 * time.Second,
		BrowserDisconnectTimeout:   10 * time.Second,
		BrowserDisconnectTolerance: 1,
		BrowserNoActivityTimeout:   60 * time.Second,
		SingleRun:                  true,
		Plugins: []string{
			"karma-jasmine",
			"karma-requirejs",
			"karma-junit-reporter",
			"karma-html-reporter",
			"karma-coverage",
			"karma-phantomjs-launcher",
		},
	}
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	out.Frameworks = cloneStrings(c.Frameworks)
	out.Exclude = cloneStrings(c.Exclude)
	out.Reporters = cloneStrings(c.Reporters)
	out.Hostname = cloneStrings(c.Hostname)
	out.Browsers = cloneStrings(c.Browsers)
	out.Plugins = cloneStrings(c.Plugins)
	if c.Files != nil {
		out.Files = make([]FilePattern, len(c.Files))
		for i, file := range c.Files {
			out.Files[i] = FilePattern{
				Pattern:  file.Pattern,
				Included: cloneBool(file.Included),
				Served:   cloneBool(file.Served),
				Watched:  cloneBool(file.Watched),
			}
		}
	}
	if c.Preprocessors != nil {
		out.Preprocessors = make(map[string][]string, len(c.Preprocessors))
		for pattern, names := range c.Preprocessors {
			out.Preprocessors[pattern] = cloneStrings(names)
		}
	}
	if c.CoverageReporter != nil {
		cp := *c.CoverageReporter
		out.CoverageReporter = &cp
	}
	if c.JUnitReporter != nil {
		cp := *c.JUnitReporter
		out.JUnitReporter = &cp
	}
	if c.HTMLReporter != nil {
		cp := *c.HTMLReporter
		out.HTMLReporter = &cp
	}
	return out
}

// Descriptor returns c in the runner's own shape: camelCase keys, durations
// in milliseconds, plain file patterns as strings. Load accepts the same
// shape.
func (c Config) Descriptor() map[string]any {
	files := make([]any, 0, len(c.Files))
	for _, file := range c.Files {
		if file.IsPlain() {
			files = append(files, file.Pattern)
			continue
		}
		entry := map[string]any{"pattern": file.Pattern}
		for key, flag := range map[string]*bool{"included": file.Included, "served": file.Served, "watched": file.Watched} {
			if flag != nil {
				entry[key] = *flag
			}
		}
		files = append(files, entry)
	}

	preprocessors := make(map[string]any, len(c.Preprocessors))
	for pattern, names := range c.Preprocessors {
		preprocessors[pattern] = toAny(names)
	}

	out := map[string]any{
		"basePath":                   c.BasePath,
		"frameworks":                 toAny(c.Frameworks),
		"files":                      files,
		"exclude":                    toAny(c.Exclude),
		"preprocessors":              preprocessors,
		"reporters":                  toAny(c.Reporters),
		"hostname":                   toAny(c.Hostname),
		"port":                       c.Port,
		"colors":                     c.Colors,
		"logLevel":                   string(c.LogLevel),
		"autoWatch":                  c.AutoWatch,
		"browsers":                   toAny(c.Browsers),
		"captureTimeout":             millis(c.CaptureTimeout),
		"browserDisconnectTimeout":   millis(c.BrowserDisconnectTimeout),
		"browserDisconnectTolerance": c.BrowserDisconnectTolerance,
		"browserNoActivityTimeout":   millis(c.BrowserNoActivityTimeout),
		"singleRun":                  c.SingleRun,
		"plugins":                    toAny(c.Plugins),
	}
	if r := c.CoverageReporter; r != nil {
		out["coverageReporter"] = map[string]any{"type": r.Type, "dir": r.Dir}
	}
	if r := c.JUnitReporter; r != nil {
		out["junitReporter"] = map[string]any{"outputFile": r.OutputFile, "suite": r.Suite}
	}
	if r := c.HTMLReporter; r != nil {
		out["htmlReporter"] = map[string]any{"outputDir": r.OutputDir, "templatePath": r.TemplatePath}
	}
	return out
}

// Artifacts lists the report outputs of the enabled reporters, sorted.
func (c Config) Artifacts() []string {
	var out []string
	for _, reporter := range c.Reporters {
		switch reporter {
		case ReporterCoverage:
			if c.CoverageReporter != nil && c.CoverageReporter.Dir != "" {
				out = append(out, c.CoverageReporter.Dir)
			}
		case ReporterJUnit:
			if c.JUnitReporter != nil && c.JUnitReporter.OutputFile != "" {
				out = append(out, c.JUnitReporter.OutputFile)
			}
		case ReporterHTML:
			if c.HTMLReporter != nil && c.HTMLReporter.OutputDir != "" {
				out = append(out, c.HTMLReporter.OutputDir)
			}
		}
	}
	sort.Strings(out)
	return out
}

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string(nil), values...)
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	return Bool(*v)
}
