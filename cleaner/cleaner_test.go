package cleaner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articlePage = `<!DOCTYPE html>
<html><head><title>Rose Hip Face Oil</title></head>
<body>
<nav><a href="/">Home</a> <a href="/shop">Shop</a> <a href="/about">About</a></nav>
<article>
  <h1>Rose Hip Face Oil</h1>
  <p>Our rose hip oil is cold pressed from wild rose seeds harvested in the
  southern Andes. It is rich in essential fatty acids and vitamin A, and it is
  light enough to be absorbed quickly without leaving a greasy finish.</p>
  <p>Use it on its own or add a drop to your moisturiser. Read our
  <a href="/care">care guide</a> for storage tips, because natural oils keep
  best away from heat and direct sunlight once the bottle has been opened.</p>
  <p>Every bottle is filled by hand in small batches, and each batch is tested
  for purity before it leaves the workshop so you always know what you get.</p>
  <details>
    <summary><h3>Ingredients</h3></summary>
    <div class="accordion-content"><p>Rosa Canina Fruit Oil</p><p>Tocopherol</p></div>
  </details>
</article>
<footer>© Example Shop</footer>
</body></html>`

func newTestCleaner(t *testing.T, opts Options) *Cleaner {
	t.Helper()
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestExtractMarkdown(t *testing.T) {
	c := newTestCleaner(t, Options{})
	md := c.ExtractMarkdown(articlePage, "https://shop.example/products/rose-hip")

	assert.True(t, strings.HasPrefix(md, "#"), "document starts with a heading: %q", md)
	assert.Contains(t, md, "Rose Hip Face Oil")
	assert.Contains(t, md, "cold pressed from wild rose seeds")
	assert.Contains(t, md, "(https://shop.example/care)")
	assert.NotContains(t, md, "<p>")

	general := strings.Index(md, "southern Andes")
	recovered := strings.Index(md, "## Ingredients\nRosa Canina Fruit Oil\nTocopherol\n")
	require.NotEqual(t, -1, recovered, md)
	assert.Less(t, general, recovered, "disclosure content comes after the main content")
	assert.True(t, strings.HasSuffix(md, "Tocopherol\n"))
}

func TestExtractMarkdownEmpty(t *testing.T) {
	c := newTestCleaner(t, Options{})
	assert.Equal(t, "", c.ExtractMarkdown("<html><body></body></html>", "https://shop.example/"))
	assert.Equal(t, "", c.ExtractMarkdown("", "https://shop.example/"))
}

func TestExtractMarkdownCitations(t *testing.T) {
	c := newTestCleaner(t, Options{LinkStyle: LinkStyleCitations})
	md := c.ExtractMarkdown(articlePage, "https://shop.example/products/rose-hip")

	assert.Contains(t, md, "[care guide][1]")
	assert.Contains(t, md, "[1]: https://shop.example/care")
}

func TestExtractMarkdownModes(t *testing.T) {
	for _, mode := range []string{ModeReadability, ModePruning, ModeAuto} {
		t.Run(mode, func(t *testing.T) {
			c := newTestCleaner(t, Options{Mode: mode})
			md := c.ExtractMarkdown(articlePage, "https://shop.example/products/rose-hip")
			assert.Contains(t, md, "cold pressed from wild rose seeds")
			assert.Contains(t, md, "## Ingredients")
		})
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Mode: "raw"})
	assert.Error(t, err)

	_, err = New(Options{CSSSelector: "div[["})
	assert.Error(t, err)
}

func TestPruneContent(t *testing.T) {
	html := `<html><body>
<nav class="menu"><a href="/">Home</a><a href="/a">A</a></nav>
<main><p>` + strings.Repeat("Plenty of real paragraph text here. ", 10) + `</p></main>
<footer><a href="/privacy">Privacy</a></footer>
</body></html>`

	out, err := PruneContent(html)
	require.NoError(t, err)
	assert.Contains(t, out, "<main>")
	assert.NotContains(t, out, "Privacy")
	assert.NotContains(t, out, `class="menu"`)
}

func TestApplyCSSSelector(t *testing.T) {
	html := `<html><head><title>T</title></head><body><div class="a">keep</div><div class="b">drop</div></body></html>`

	out, err := ApplyCSSSelector(html, "div.a")
	require.NoError(t, err)
	assert.Contains(t, out, "keep")
	assert.Contains(t, out, "<title>T</title>")
	assert.NotContains(t, out, "drop")

	out, err = ApplyCSSSelector(html, "section")
	require.NoError(t, err)
	assert.Equal(t, html, out, "no match returns the input")
}

func TestConvertToCitations(t *testing.T) {
	in := "See [Google](https://google.com), [again](https://google.com) and ![logo](https://img.example/l.png)."
	want := "See [Google][1], [again][1] and ![logo](https://img.example/l.png).\n\n---\n[1]: https://google.com"
	assert.Equal(t, want, ConvertToCitations(in))

	assert.Equal(t, "no links", ConvertToCitations("no links"))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("hi"))
	assert.Equal(t, 4, EstimateTokens("twelve chars"))
}
