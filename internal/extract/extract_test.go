package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTitleAndBody(t *testing.T) {
	html := `<html><head><title>  Go 1.30
	released </title><script>var x = 1;</script></head>
	<body>
		<nav>Home | About</nav>
		<article>
			<h1>Go 1.30 released</h1>
			<p>The release brings faster builds.</p>
			<p>Generic methods are still not supported.</p>
		</article>
		<footer>Copyright</footer>
	</body></html>`

	got := New().Extract(html)

	assert.Equal(t, "Go 1.30 released", got.Title)
	assert.Contains(t, got.Text, "The release brings faster builds.")
	assert.Contains(t, got.Text, "Generic methods are still not supported.")
	assert.NotContains(t, got.Text, "Home | About")
	assert.NotContains(t, got.Text, "Copyright")
	assert.NotContains(t, got.Text, "var x")
}

func TestExtractPlaceholderTitle(t *testing.T) {
	got := New().Extract(`<html><body><p>No title here.</p></body></html>`)
	assert.Equal(t, UntitledPlaceholder, got.Title)
	assert.Equal(t, "No title here.", got.Text)
}

func TestExtractCollapsesRepeatedLines(t *testing.T) {
	html := `<html><body><main>
		<p>Subscribe to our newsletter</p>
		<p>First paragraph.</p>
		<p>Subscribe to our newsletter</p>
		<p>Second paragraph.</p>
	</main></body></html>`

	got := New().Extract(html)
	assert.Equal(t, "Subscribe to our newsletter\nFirst paragraph.\nSecond paragraph.", got.Text)
}

func TestExtractDropsMarkup(t *testing.T) {
	html := `<html><body><article>
		<h2>Release notes</h2>
		<p>Read the <a href="https://go.dev/doc">full notes</a> for <strong>all</strong> <em>details</em>.</p>
		<ul><li>Faster builds</li><li>Smaller binaries</li></ul>
		<blockquote>Quoted text</blockquote>
		<p>Run <code>go build</code> now.<img src="chart.png" alt="chart"></p>
		<pre><code>x := 1_000 * 2</code></pre>
		<p>1. Not a list</p>
	</article></body></html>`

	got := New().Extract(html)

	assert.Equal(t, strings.Join([]string{
		"Release notes",
		"Read the full notes for all details.",
		"Faster builds",
		"Smaller binaries",
		"Quoted text",
		"Run go build now.",
		"x := 1_000 * 2",
		"1. Not a list",
	}, "\n"), got.Text)
	for _, marker := range []string{"](", "**", "# ", "> ", "- ", "`", "\\"} {
		assert.NotContains(t, got.Text, marker)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	got := New().Extract("")
	assert.Equal(t, UntitledPlaceholder, got.Title)
	assert.Empty(t, got.Text)
}

func TestDedupLines(t *testing.T) {
	in := strings.Join([]string{"a", "  b ", "", "a", "c", "b", "   "}, "\n")
	assert.Equal(t, "a\nb\nc", DedupLines(in))
	assert.Empty(t, DedupLines(""))
}
