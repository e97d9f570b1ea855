// Package extract turns a fetched HTML page into a title and a plain body text.
package extract

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// UntitledPlaceholder is the title of a page without a usable <title>.
const UntitledPlaceholder = "Untitled"

// boilerplate is removed before the body is converted.
const boilerplate = "script, style, noscript, iframe, svg, form, nav, header, footer, aside"

// bodyCandidates are tried in order; the first match is taken as the main body.
var bodyCandidates = []string{"article", "main", "[role=main]", "body"}

// Content is the result of extraction.
type Content struct {
	Title string
	Text  string
}

// Extractor converts HTML into Content. It is safe for concurrent use.
type Extractor struct {
	converter *md.Converter
}

// New creates an Extractor.
func New() *Extractor {
	converter := md.NewConverter("", true, &md.Options{EscapeMode: "disabled"})
	converter.AddRules(plainTextRules...)
	return &Extractor{converter: converter}
}

// plainTextRules override the markdown renderings so only the words and the
// block structure survive.
var plainTextRules = []md.Rule{
	{
		Filter:      []string{"a", "strong", "b", "em", "i", "code", "span"},
		Replacement: keepContent,
	},
	{
		Filter:      []string{"h1", "h2", "h3", "h4", "h5", "h6", "blockquote"},
		Replacement: block,
	},
	{
		Filter: []string{"pre"},
		Replacement: func(_ string, selec *goquery.Selection, _ *md.Options) *string {
			return md.String("\n\n" + selec.Text() + "\n\n")
		},
	},
	{
		Filter: []string{"li"},
		Replacement: func(content string, _ *goquery.Selection, _ *md.Options) *string {
			return md.String(strings.TrimSpace(content) + "\n")
		},
	},
	{
		Filter: []string{"img"},
		Replacement: func(string, *goquery.Selection, *md.Options) *string {
			return md.String("")
		},
	},
	{
		Filter: []string{"hr"},
		Replacement: func(string, *goquery.Selection, *md.Options) *string {
			return md.String("\n\n")
		},
	},
}

func keepContent(content string, _ *goquery.Selection, _ *md.Options) *string {
	return md.String(content)
}

func block(content string, _ *goquery.Selection, _ *md.Options) *string {
	return md.String("\n\n" + strings.TrimSpace(content) + "\n\n")
}

// Extract never fails: a page it cannot make sense of yields an empty Text,
// which callers treat as no usable content.
func (e *Extractor) Extract(html string) (content Content) {
	content.Title = UntitledPlaceholder

	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("Content extraction panicked")
			content.Text = ""
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Debug().Err(err).Msg("Failed to parse HTML")
		return content
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		content.Title = collapseSpaces(title)
	}

	doc.Find(boilerplate).Remove()

	var body *goquery.Selection
	for _, selector := range bodyCandidates {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			body = sel
			break
		}
	}
	if body == nil {
		return content
	}

	inner, err := body.Html()
	if err != nil {
		log.Debug().Err(err).Msg("Failed to render body HTML")
		return content
	}

	text, err := e.converter.ConvertString(inner)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to convert body to text")
		return content
	}

	content.Text = DedupLines(text)
	return content
}

// DedupLines trims every line, drops blank ones and keeps only the first
// occurrence of each repeated line, preserving order.
func DedupLines(text string) string {
	lines := strings.Split(text, "\n")
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
