package runner

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.tpl
var templates embed.FS

const moduleTemplate = "templates/karma.conf.js.tpl"

var (
	templateOnce sync.Once
	moduleTpl    *pongo2.Template
	templateErr  error
)

func loadTemplate() (*pongo2.Template, error) {
	templateOnce.Do(func() {
		if !pongo2.FilterExists("jsliteral") {
			if err := pongo2.RegisterFilter("jsliteral", filterJSLiteral); err != nil {
				templateErr = fmt.Errorf("runner: register filter: %w", err)
				return
			}
		}
		set := pongo2.NewSet("runner", pongo2.NewFSLoader(templates))
		moduleTpl, templateErr = set.FromFile(moduleTemplate)
		if templateErr != nil {
			templateErr = fmt.Errorf("runner: load template: %w", templateErr)
		}
	})
	return moduleTpl, templateErr
}

// filterJSLiteral writes a value as a JavaScript literal. JSON is a subset of
// JavaScript expression syntax.
func filterJSLiteral(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	raw, err := json.Marshal(in.Interface())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:jsliteral", OrigError: err}
	}
	return pongo2.AsSafeValue(string(raw)), nil
}

// Render writes cfg as a karma.conf.js module.
func Render(w io.Writer, cfg Config) error {
	tpl, err := loadTemplate()
	if err != nil {
		return err
	}
	level, ok := ParseLogLevel(string(cfg.LogLevel))
	if !ok {
		return fmt.Errorf("%w: unknown logLevel %q", ErrInvalidDescriptor, cfg.LogLevel)
	}
	ctx := pongo2.Context{
		"c":        cfg.Descriptor(),
		"logLevel": string(level),
	}
	if err := tpl.ExecuteWriter(ctx, w); err != nil {
		return fmt.Errorf("runner: render: %w", err)
	}
	return nil
}

// RenderJSON writes cfg's descriptor as indented JSON.
func RenderJSON(w io.Writer, cfg Config) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg.Descriptor()); err != nil {
		return fmt.Errorf("runner: encode json: %w", err)
	}
	return nil
}
