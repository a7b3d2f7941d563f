package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Report types.
const (
	TypeJSON     = "json"
	TypeMarkdown = "markdown"
	TypeHTML     = "html"
)

// DefaultTitle is the Markdown and HTML report title.
const DefaultTitle = "PHP behavior changes"

// Spec describes one report file. In configuration it is either a bare
// file name, whose extension selects the type, or an object.
type Spec struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Pretty bool   `json:"pretty,omitempty"`
	Sames  bool   `json:"sames,omitempty"`
	Title  string `json:"title,omitempty"`
}

// SpecFor infers a spec from a file name.
func SpecFor(name string) (Spec, error) {
	t, err := typeFor(name)
	if err != nil {
		return Spec{}, err
	}
	return Spec{Type: t, Name: name}, nil
}

func typeFor(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return TypeJSON, nil
	case ".md":
		return TypeMarkdown, nil
	case ".html", ".htm":
		return TypeHTML, nil
	default:
		return "", fmt.Errorf("cannot determine %s file type", name)
	}
}

// UnmarshalJSON accepts a file name or an object.
func (s *Spec) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		spec, err := SpecFor(name)
		if err != nil {
			return err
		}
		*s = spec
		return nil
	}

	type plain Spec
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("strange output spec: %w", err)
	}
	if p.Name == "" {
		return fmt.Errorf("output spec without name")
	}
	if p.Type == "" {
		t, err := typeFor(p.Name)
		if err != nil {
			return err
		}
		p.Type = t
	}
	*s = Spec(p)
	return nil
}

// Validate checks that the output names a supported type and a file.
func (s Spec) Validate() error {
	switch s.Type {
	case TypeJSON, TypeMarkdown, TypeHTML:
	default:
		return fmt.Errorf("not supported type %q", s.Type)
	}
	if s.Name == "" {
		return fmt.Errorf("%s output has no name", s.Type)
	}
	return nil
}

func (s Spec) title() string {
	if s.Title == "" {
		return DefaultTitle
	}
	return s.Title
}

// Render produces the report bytes for spec.
func Render(r *Result, spec Spec) ([]byte, error) {
	switch spec.Type {
	case TypeJSON:
		return renderJSON(r, spec.Pretty)
	case TypeMarkdown:
		return []byte(renderMarkdown(r, spec)), nil
	case TypeHTML:
		return renderHTML(r, spec)
	default:
		return nil, fmt.Errorf("not supported type %q", spec.Type)
	}
}

// Write renders r and writes it to spec.Name.
func Write(r *Result, spec Spec) error {
	data, err := Render(r, spec)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(spec.Name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(spec.Name, data, 0o644)
}

func renderJSON(r *Result, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "    ")
	}
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func renderMarkdown(r *Result, spec Spec) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n", spec.title())

	b.WriteString("\n## Test Environment\n")
	b.WriteString("\nCommand outputs describing the test environment.\n")
	for _, e := range r.Env {
		fmt.Fprintf(&b, "\n### %s\n\n", e.Name)
		fmt.Fprintf(&b, "```plain\n%s\n```\n", strings.TrimSpace(e.Output))
	}

	s := r.Summary
	b.WriteString("\n## Summary\n")
	b.WriteString("\nA test has the \"exactly same result\" when run-tests.php reports the same status and PHP prints the same output on both sides. ")
	b.WriteString("The \"real bc rate\" is the share of behavior changes among tests that were not skipped.\n")
	b.WriteString("\n| Tests have exactly same result | Tests ran | All tests found | Overall bc rate | Real bc rate |")
	b.WriteString("\n| - | - | - | - | - |")
	fmt.Fprintf(&b, "\n| %d | %d | %d | %0.4f%% | %0.4f%% |\n",
		s.Same, s.Tested, s.All, s.OverallRate*100, s.RealRate*100)

	b.WriteString("\n## Behavior changes\n")
	for _, test := range sortedKeys(r.Diffs) {
		d := r.Diffs[test]
		fmt.Fprintf(&b, "\n### %s\n\n", test)
		ctrl, expr, changed := strings.Cut(d.Type, ":")
		if d.Reason != "" {
			status := d.Type
			if changed {
				status = expr
			}
			fmt.Fprintf(&b, "Test %s in experiment because\n\n", status)
			fmt.Fprintf(&b, "```patch\n%s\n```\n\n", d.Reason)
		}
		if changed {
			fmt.Fprintf(&b, "Test %s in control but %s in experiment\n\n", ctrl, expr)
		} else {
			fmt.Fprintf(&b, "Test %s in both, but outputs are different.\n\n", d.Type)
		}
		if d.Diff != "" {
			fmt.Fprintf(&b, "```patch\n%s\n```\n", d.Diff)
		}
	}

	if spec.Sames {
		b.WriteString("\n## Tests have no behavior change\n")
		b.WriteString("\nThese tests have the same result and exactly the same output.\n")
		titleCase := cases.Title(language.English)
		for _, status := range sortedKeys(r.Sames) {
			fmt.Fprintf(&b, "\n### %s (%d)\n\n", titleCase.String(strings.ToLower(status)), len(r.Sames[status]))
			for _, test := range r.Sames[status] {
				fmt.Fprintf(&b, "- %s\n", test)
			}
		}
	}
	return b.String()
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func renderHTML(r *Result, spec Spec) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(renderMarkdown(r, spec)), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(spec.title()))
	buf.WriteString("</head>\n<body>\n")
	buf.Write(body.Bytes())
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
