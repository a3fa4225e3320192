// Package tmpl renders user supplied Go templates for line oriented output.
package tmpl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

var funcs = template.FuncMap{
	// clock formats a time as local HH:MM
	"clock": func(t time.Time) string {
		return t.Local().Format("15:04")
	},
	// oneline collapses newlines so a value fits on a single output line
	"oneline": func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}

// Template is a parsed template that can be executed many times.
type Template struct {
	t *template.Template
}

// Parse compiles text. Executing it with data that lacks a referenced key is
// an error.
//
// Available template functions:
//   - clock: format a time.Time as local HH:MM
//   - oneline: collapse whitespace and newlines to single spaces
//   - upper, lower: change case
func Parse(text string) (*Template, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Template{t: t}, nil
}

// Execute renders the template with data.
func (t *Template) Execute(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// Render parses and executes text in one step.
func Render(text string, data any) (string, error) {
	t, err := Parse(text)
	if err != nil {
		return "", err
	}
	return t.Execute(data)
}
