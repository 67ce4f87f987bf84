// Package render produces tweet payloads from a jinja-style template and
// a merged variable context.
package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flosch/pongo2/v6"

	"github.com/cheerlights/cheertweet/internal/colour"
)

// TemplateName is the file name looked up in a user template directory.
const TemplateName = "tweet.tpl"

// defaultTemplate is the bundled template used when no user override
// exists. It produces the canonical CheerLights update line.
const defaultTemplate = `@cheerlights {{ colour }}`

// Context holds template variables.
type Context map[string]any

// TemplateError reports a template that could not be loaded or rendered.
type TemplateError struct {
	Source string
	Err    error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Source, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// Renderer renders colour updates through a template. Rendering is a
// pure function of the colour, the merged context and the template.
type Renderer struct {
	tpl         *pongo2.Template
	instanceCtx Context
}

// Config holds renderer configuration.
type Config struct {
	// TemplateDir optionally overrides the bundled template: if it
	// contains TemplateName that file is used, otherwise the bundled
	// default applies.
	TemplateDir string

	// Context supplies instance-level template variables, present on
	// every render unless shadowed by a call-level variable.
	Context Context
}

// New creates a renderer, loading the template once up front so a broken
// user template fails at construction rather than on first tweet.
func New(cfg Config) (*Renderer, error) {
	tpl, err := loadTemplate(cfg.TemplateDir)
	if err != nil {
		return nil, err
	}
	return &Renderer{tpl: tpl, instanceCtx: cfg.Context}, nil
}

func loadTemplate(dir string) (*pongo2.Template, error) {
	if dir != "" {
		path := filepath.Join(dir, TemplateName)
		src, err := os.ReadFile(path)
		switch {
		case err == nil:
			tpl, err := pongo2.FromString(rawTemplate(string(src)))
			if err != nil {
				return nil, &TemplateError{Source: path, Err: err}
			}
			return tpl, nil
		case !os.IsNotExist(err):
			return nil, &TemplateError{Source: path, Err: err}
		}
		// No override present, fall through to the bundled template.
	}

	tpl, err := pongo2.FromString(rawTemplate(defaultTemplate))
	if err != nil {
		return nil, &TemplateError{Source: "builtin", Err: err}
	}
	return tpl, nil
}

// rawTemplate disables HTML autoescaping. Payloads go to a plain-text
// API, so substituted values must appear verbatim, not entity-encoded.
func rawTemplate(src string) string {
	return "{% autoescape off %}" + src + "{% endautoescape %}"
}

// Render validates the colour name and renders the template with the
// merged context: colour first, then instance variables, then call
// variables, later sources shadowing earlier ones. Call variables apply
// to this render only.
func (r *Renderer) Render(colourName string, callCtx Context) (string, error) {
	c, err := colour.Parse(colourName)
	if err != nil {
		return "", err
	}
	return r.RenderColour(c, callCtx)
}

// RenderColour renders a palette colour that is already known valid.
func (r *Renderer) RenderColour(c colour.Colour, callCtx Context) (string, error) {
	merged := pongo2.Context{"colour": c.String()}
	for k, v := range r.instanceCtx {
		merged[k] = v
	}
	for k, v := range callCtx {
		merged[k] = v
	}

	out, err := r.tpl.Execute(merged)
	if err != nil {
		return "", &TemplateError{Source: TemplateName, Err: err}
	}
	return out, nil
}
