package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"reddot-watch/curator/internal/metrics"
)

const (
	maxArticleChars  = 12000
	maxSelectorChars = 10000
)

const summarySystem = "You are a news editor. You write neutral, factual summaries and label articles with short topic categories."

const summaryPrompt = `Analyze the following news article and provide a concise summary and a list of relevant categories.

Article text:
---
%s
---

Instructions:
1. Summary: write a neutral, one-paragraph summary of the article.
2. Categories: give a comma-separated list of 3-5 relevant categories (for example "Technology", "Artificial Intelligence", "Business").

Answer in exactly this format:
Summary: <summary>
Categories: <category 1>, <category 2>, <category 3>`

const scorePrompt = `Rate how relevant the article below is to the reader's interests on a scale of 0 to 100,
where 0 means completely irrelevant and 100 means highly relevant.

Reader interests:
---
%s
---

Article text:
---
%s
---

Answer with the integer score only.`

const selectorPrompt = `The HTML below is the home page of a news or blog website.
Identify a CSS selector that reliably targets the <a> elements linking to the main articles on the page.
Ignore navigation, sidebars, headers and footers.

HTML:
---
%s
---

Answer with the CSS selector only.`

// Enricher derives summaries, categories, interest scores and link selectors
// from a Completer. Every method fails soft and returns its zero result.
type Enricher struct {
	completer Completer
}

// NewEnricher creates an Enricher on top of completer.
func NewEnricher(completer Completer) *Enricher {
	return &Enricher{completer: completer}
}

// SummarizeAndCategorize returns ("", nil) when the call fails or the answer
// does not have the Summary/Categories shape.
func (e *Enricher) SummarizeAndCategorize(ctx context.Context, text string) (string, []string) {
	response, err := e.completer.Complete(ctx, Request{
		System:      summarySystem,
		Prompt:      fmt.Sprintf(summaryPrompt, truncate(text, maxArticleChars)),
		Temperature: 0.2,
		MaxTokens:   600,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Summary request failed")
		metrics.EnrichmentFailures.WithLabelValues(metrics.StepSummarize).Inc()
		return "", nil
	}

	summary, categories, err := ParseSummary(response)
	if err != nil {
		log.Warn().Err(err).Str("response", truncate(response, 200)).Msg("Unparseable summary response")
		metrics.EnrichmentFailures.WithLabelValues(metrics.StepSummarize).Inc()
		return "", nil
	}
	return summary, categories
}

// ScoreInterest returns 0 when the call fails or the answer is not an integer.
// A failure is therefore indistinguishable from a zero-interest verdict.
func (e *Enricher) ScoreInterest(ctx context.Context, text, profile string) int {
	response, err := e.completer.Complete(ctx, Request{
		Prompt:      fmt.Sprintf(scorePrompt, profile, truncate(text, maxArticleChars)),
		Temperature: 0.1,
		MaxTokens:   10,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Interest score request failed")
		metrics.EnrichmentFailures.WithLabelValues(metrics.StepScore).Inc()
		return 0
	}

	score, err := ParseScore(response)
	if err != nil {
		log.Warn().Err(err).Msg("Unparseable interest score")
		metrics.EnrichmentFailures.WithLabelValues(metrics.StepScore).Inc()
		return 0
	}
	return score
}

// SuggestSelector asks for a CSS selector matching article links in a home
// page. Only the start of the page is sent. It returns "" on failure.
func (e *Enricher) SuggestSelector(ctx context.Context, page string) string {
	response, err := e.completer.Complete(ctx, Request{
		Prompt:      fmt.Sprintf(selectorPrompt, truncate(page, maxSelectorChars)),
		Temperature: 0.1,
		MaxTokens:   100,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Selector suggestion request failed")
		metrics.EnrichmentFailures.WithLabelValues(metrics.StepSelector).Inc()
		return ""
	}
	return ParseSelector(response)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
