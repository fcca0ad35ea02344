// SPDX-License-Identifier: MPL-2.0

package pyruntime

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/pylayer/pylayer/pkg/relocate"
)

// DefaultPrefixTemplate is where Lambda looks for Python packages inside a
// layer, relative to the /opt extraction root.
const DefaultPrefixTemplate = "python/lib/python{{.Major}}.{{.Minor}}/site-packages"

// Layout renders the relocation prefix for a runtime identity.
type Layout struct {
	tmpl *template.Template
}

// NewLayout parses a prefix template. The template sees an Identity, so
// {{.Major}}, {{.Minor}}, {{.Dotted}} and {{.Compact}} are available.
// An empty text selects DefaultPrefixTemplate.
func NewLayout(text string) (*Layout, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultPrefixTemplate
	}
	tmpl, err := template.New("prefix").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prefix template %q: %w", text, err)
	}
	return &Layout{tmpl: tmpl}, nil
}

// Prefix renders and validates the relocation prefix for id.
func (l *Layout) Prefix(id Identity) (relocate.Prefix, error) {
	var sb strings.Builder
	if err := l.tmpl.Execute(&sb, id); err != nil {
		return "", fmt.Errorf("render prefix template: %w", err)
	}
	p := relocate.Prefix(sb.String())
	if valid, errs := p.IsValid(); !valid {
		return "", errs[0]
	}
	return p, nil
}
