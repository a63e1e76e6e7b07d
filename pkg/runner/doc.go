// Package runner describes the browser test-runner (Karma) configuration
// used by the widget's legacy CI build.
//
// A Config can be built from LegacyCI, overlaid with Merge or loaded from a
// file plus environment with Load, then rendered as a karma.conf.js module
// (Render) or as JSON (RenderJSON). ResolveFiles expands the file patterns
// against a filesystem so a build can check what the runner would load.
package runner
