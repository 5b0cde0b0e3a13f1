// Package transform turns validated transcript text into the structured
// article fields the store accepts, by way of a language model call with
// lenient response parsing and deterministic fallbacks.
package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"castpress/internal/config"
	"castpress/internal/core"
	"castpress/internal/logger"
	"castpress/internal/retry"
)

// PromptTemplate is the instruction sent to the language model. The
// {{.Transcript}} and {{.Categories}} placeholders are substituted before
// the call.
const PromptTemplate = `You are an editor for a podcast blog. Transform the following episode transcript into a polished article.

Respond with a single JSON object containing exactly these keys:
- "title": a compelling headline between 10 and 100 characters
- "category": one of the following categories:
{{.Categories}}
- "excerpt": a teaser of at least 50 characters summarizing the episode
- "content": the article body as clean HTML (use <p>, <h2>, <strong>, <em>, <ul>, <li> only), at least 100 characters
- "tags": an array of at least 3 short lowercase topic tags
- "imageSearchTerms": an array of 1-3 search keywords for a header image

Do not include any text outside the JSON object.

Transcript:
{{.Transcript}}`

// Completer is the single language model operation the transformer depends
// on. The production implementation lives in the llm package.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Transformer drives the transcript-to-fields transformation.
type Transformer struct {
	completer Completer
	articles  config.Articles
	policy    retry.Policy
}

// New creates a Transformer using the configured category set and retry
// policy.
func New(completer Completer, articles config.Articles, retryCfg config.Retry) *Transformer {
	return &Transformer{
		completer: completer,
		articles:  articles,
		policy: retry.Policy{
			Attempts:   retryCfg.Attempts,
			BaseDelay:  retryCfg.BaseDelay,
			Multiplier: retryCfg.Multiplier,
		},
	}
}

// Transform sends the transcript to the language model and returns the
// validated, sanitized structured fields. Only the model call itself is
// retried; parse and field validation failures propagate immediately.
func (t *Transformer) Transform(ctx context.Context, transcript string) (*core.GeneratedContent, error) {
	prompt := t.buildPrompt(transcript)

	var response string
	err := retry.Do(ctx, t.policy, func(ctx context.Context) error {
		var callErr error
		response, callErr = t.completer.Complete(ctx, prompt)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("language model call failed: %w", err)
	}

	raw, err := ParseResponse(response)
	if err != nil {
		return nil, err
	}

	return t.normalize(raw)
}

func (t *Transformer) buildPrompt(transcript string) string {
	categories := "  - " + strings.Join(t.articles.Categories, "\n  - ")
	prompt := strings.ReplaceAll(PromptTemplate, "{{.Categories}}", categories)
	return strings.ReplaceAll(prompt, "{{.Transcript}}", transcript)
}

// requiredFields are the six keys the model must return.
var requiredFields = []string{"title", "category", "excerpt", "content", "tags", "imageSearchTerms"}

// MissingFieldsError reports every required field absent from the model
// response in a single error.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("model response missing required fields: %s", strings.Join(e.Fields, ", "))
}

// normalize checks field presence, applies the documented fallbacks, and
// sanitizes the content. Field problems other than outright absence are
// repaired, not fatal.
func (t *Transformer) normalize(raw []byte) (*core.GeneratedContent, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &ParseError{Detail: fmt.Sprintf("response object is not a JSON object: %v", err)}
	}

	var missing []string
	for _, name := range requiredFields {
		value, ok := fields[name]
		if !ok || string(value) == "null" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	content := &core.GeneratedContent{
		Title:            strings.TrimSpace(decodeString(fields["title"])),
		Category:         decodeString(fields["category"]),
		Excerpt:          strings.TrimSpace(decodeString(fields["excerpt"])),
		Content:          SanitizeHTML(decodeString(fields["content"])),
		Tags:             decodeStrings(fields["tags"]),
		ImageSearchTerms: decodeStrings(fields["imageSearchTerms"]),
	}

	if !t.validCategory(content.Category) {
		logger.Warn("model returned unknown category, using default",
			"category", content.Category, "default", t.articles.DefaultCategory)
		content.Category = t.articles.DefaultCategory
	}

	if len(content.Tags) < 3 {
		content.Tags = fallbackTags(content.Category)
	}
	if len(content.ImageSearchTerms) == 0 {
		content.ImageSearchTerms = []string{strings.ToLower(content.Category)}
	}

	return content, nil
}

func (t *Transformer) validCategory(category string) bool {
	for _, c := range t.articles.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// fallbackTags is the deterministic replacement for an under-supplied or
// malformed tag list.
func fallbackTags(category string) []string {
	return []string{"podcast", "episode", strings.ToLower(category)}
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeStrings(raw json.RawMessage) []string {
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	out := values[:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}
