package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndreyAkinshin/phpbc/internal/compare"
)

func sampleResult() *Result {
	r := sampleReport()
	r.Diffs["ext/standard/tests/x.phpt"] = compare.Entry{
		Type:   "FAILED",
		Diff:   "002+ X\n002- 2",
		Reason: "expected 2",
	}
	return New(r, Env{
		{Name: "control php -v", Output: "PHP 8.3.0\n\n"},
		{Name: "uname -a", Output: "Linux box"},
	})
}

func TestSpecFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"out.json", TypeJSON, false},
		{"OUT.JSON", TypeJSON, false},
		{"report.md", TypeMarkdown, false},
		{"dir/report.html", TypeHTML, false},
		{"report.htm", TypeHTML, false},
		{"report.txt", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := SpecFor(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Spec{Type: tt.want, Name: tt.name}, spec)
		})
	}
}

func TestSpec_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var specs []Spec
	err := json.Unmarshal([]byte(`[
		"phpbc_result.json",
		{"type": "markdown", "name": "r.txt", "sames": true, "title": "T"},
		{"name": "r.html"},
		{"type": "json", "name": "p.json", "pretty": true}
	]`), &specs)
	require.NoError(t, err)

	assert.Equal(t, []Spec{
		{Type: TypeJSON, Name: "phpbc_result.json"},
		{Type: TypeMarkdown, Name: "r.txt", Sames: true, Title: "T"},
		{Type: TypeHTML, Name: "r.html"},
		{Type: TypeJSON, Name: "p.json", Pretty: true},
	}, specs)
}

func TestSpec_UnmarshalJSON_Errors(t *testing.T) {
	t.Parallel()

	for _, input := range []string{`"report.txt"`, `{"type": "json"}`, `42`, `{"name": "x.yaml"}`} {
		var s Spec
		assert.Error(t, json.Unmarshal([]byte(input), &s), "input %s", input)
	}
}

func TestSpec_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Spec{Type: TypeJSON, Name: "a.json"}.Validate())
	assert.Error(t, Spec{Type: "xml", Name: "a.xml"}.Validate())
	assert.Error(t, Spec{Type: TypeHTML}.Validate())
}

func TestRender_JSON(t *testing.T) {
	t.Parallel()

	compact, err := Render(sampleResult(), Spec{Type: TypeJSON})
	require.NoError(t, err)
	assert.NotContains(t, string(compact), "\n    ")
	assert.Contains(t, string(compact), `"control php -v":"PHP 8.3.0\n\n"`)

	pretty, err := Render(sampleResult(), Spec{Type: TypeJSON, Pretty: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pretty), "{\n    \"diffs\": {"))
	assert.False(t, strings.HasSuffix(string(pretty), "\n"))

	var decoded Result
	require.NoError(t, json.Unmarshal(pretty, &decoded))
	assert.Equal(t, sampleResult().Env, decoded.Env)
	assert.Equal(t, sampleResult().Diffs, decoded.Diffs)
}

func TestRender_Markdown(t *testing.T) {
	t.Parallel()

	data, err := Render(sampleResult(), Spec{Type: TypeMarkdown})
	require.NoError(t, err)
	md := string(data)

	assert.True(t, strings.HasPrefix(md, "# PHP behavior changes\n"))
	assert.Contains(t, md, "### control php -v\n\n```plain\nPHP 8.3.0\n```\n")
	assert.Contains(t, md, "| 3 | 4 | 5 | 40.0000% | 50.0000% |")
	assert.Contains(t, md, "### Zend/tests/b.phpt\n\nTest PASSED in control but FAILED in experiment\n\n```patch\nnot generated\n```\n")
	assert.Contains(t, md, "Test FAILED in experiment because\n\n```patch\nexpected 2\n```\n\n")
	assert.Contains(t, md, "Test FAILED in both, but outputs are different.")
	assert.NotContains(t, md, "Tests have no behavior change")

	// Diffs are listed in test order.
	assert.Less(t, strings.Index(md, "### Zend/tests/b.phpt"), strings.Index(md, "### ext/standard/tests/x.phpt"))
}

func TestRender_MarkdownSames(t *testing.T) {
	t.Parallel()

	data, err := Render(sampleResult(), Spec{Type: TypeMarkdown, Sames: true, Title: "Nightly"})
	require.NoError(t, err)
	md := string(data)

	assert.True(t, strings.HasPrefix(md, "# Nightly\n"))
	assert.Contains(t, md, "### Passed (2)\n\n- Zend/tests/a.phpt\n- Zend/tests/c.phpt\n")
	assert.Contains(t, md, "### Skipped (1)\n\n- Zend/tests/d.phpt\n")
}

func TestRender_HTML(t *testing.T) {
	t.Parallel()

	data, err := Render(sampleResult(), Spec{Type: TypeHTML, Title: "A <b> title"})
	require.NoError(t, err)
	page := string(data)

	assert.Contains(t, page, "<title>A &lt;b&gt; title</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<h2>Behavior changes</h2>")
	assert.Contains(t, page, `<code class="language-patch">`)
}

func TestRender_UnknownType(t *testing.T) {
	t.Parallel()

	_, err := Render(sampleResult(), Spec{Type: "xml"})
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	t.Parallel()

	name := filepath.Join(t.TempDir(), "nested", "phpbc_result.json")
	require.NoError(t, Write(sampleResult(), Spec{Type: TypeJSON, Name: name}))

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}
