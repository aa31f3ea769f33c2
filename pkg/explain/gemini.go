package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smith3v/tg-word-keeper/pkg/format"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultGeminiModel   = "gemini-2.5-flash"
	geminiMaxAttempts    = 3
)

const explainPrompt = `You are an expert linguist. Analyse the word or phrase %q and answer strictly in JSON.

Tasks:
1. Fix spelling mistakes if there are any.
2. Bring the word or phrase to its dictionary form (nominative, singular, infinitive for verbs).
3. Write a detailed and engaging explanation of its meaning in the language of the word.

Explanation format rules:
- Use Markdown (**, *, backticks).
- Start every section header with an emoji.
- Mark list items with •.
- No greetings or farewells.

Sections: short definition, usage context, example sentences, synonyms, etymology, interesting fact.

Return only JSON:
{"normalized_word": "word in dictionary form", "explanation": "Markdown explanation"}`

const suggestPrompt = `You are an expert linguist. The user is learning sophisticated, bookish words.
Their vocabulary already contains: %s.

Suggest one NEW word that is not in this list but matches its style (intellectual, literary, scientific or philosophical).

Return only JSON:
{"word": "WORD", "explanation": "Markdown explanation with definition, synonyms, usage context and an interesting fact, with emoji"}`

var defaultSuggestContext = []string{"empathy", "ambivalence", "cognitive"}

// GeminiClient talks to the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	client     *http.Client
	retryDelay func(attempt int) time.Duration
}

type GeminiOption func(*GeminiClient)

func WithBaseURL(url string) GeminiOption {
	return func(c *GeminiClient) { c.baseURL = strings.TrimRight(url, "/") }
}

func WithModel(model string) GeminiOption {
	return func(c *GeminiClient) {
		if model != "" {
			c.model = model
		}
	}
}

func WithHTTPClient(client *http.Client) GeminiOption {
	return func(c *GeminiClient) { c.client = client }
}

// WithRetryDelay sets the wait before retry number attempt (starting at 0).
func WithRetryDelay(delay func(attempt int) time.Duration) GeminiOption {
	return func(c *GeminiClient) { c.retryDelay = delay }
}

func NewGeminiClient(apiKey string, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		apiKey:  apiKey,
		model:   defaultGeminiModel,
		baseURL: defaultGeminiBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		retryDelay: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * 10 * time.Second
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type modelAnswer struct {
	NormalizedWord string `json:"normalized_word"`
	Word           string `json:"word"`
	Explanation    string `json:"explanation"`
}

func (c *GeminiClient) Explain(ctx context.Context, word string) (Explanation, error) {
	answer, err := c.ask(ctx, fmt.Sprintf(explainPrompt, word))
	if err != nil {
		return Explanation{}, err
	}
	if strings.TrimSpace(answer.Explanation) == "" {
		return Explanation{}, ErrEmptyAnswer
	}
	normalized := strings.TrimSpace(answer.NormalizedWord)
	if normalized == "" {
		normalized = word
	}
	return Explanation{Word: normalized, HTML: format.MarkdownToHTML(answer.Explanation)}, nil
}

func (c *GeminiClient) Suggest(ctx context.Context, known []string) (Explanation, error) {
	if len(known) == 0 {
		known = defaultSuggestContext
	}
	answer, err := c.ask(ctx, fmt.Sprintf(suggestPrompt, strings.Join(known, ", ")))
	if err != nil {
		return Explanation{}, err
	}
	word := strings.TrimSpace(answer.Word)
	if word == "" || strings.TrimSpace(answer.Explanation) == "" {
		return Explanation{}, ErrEmptyAnswer
	}
	return Explanation{Word: word, HTML: format.MarkdownToHTML(answer.Explanation)}, nil
}

// ask sends prompt and decodes the JSON answer. Rate limited calls are
// retried with a growing wait.
func (c *GeminiClient) ask(ctx context.Context, prompt string) (modelAnswer, error) {
	body, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return modelAnswer{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/%s:generateContent", c.baseURL, c.model)

	var lastErr error
	for attempt := 0; attempt < geminiMaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt - 1)
			logger.Warn("gemini rate limited, retrying", "attempt", attempt+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return modelAnswer{}, ctx.Err()
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return modelAnswer{}, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.client.Do(httpReq)
		if err != nil {
			return modelAnswer{}, fmt.Errorf("gemini request failed: %w", err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return modelAnswer{}, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("gemini rate limited (%d): %s", resp.StatusCode, string(respBody))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return modelAnswer{}, fmt.Errorf("gemini error (%d): %s", resp.StatusCode, string(respBody))
		}

		var decoded geminiResponse
		if err := json.Unmarshal(respBody, &decoded); err != nil {
			return modelAnswer{}, fmt.Errorf("failed to decode response: %w", err)
		}
		if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
			return modelAnswer{}, ErrEmptyAnswer
		}
		return parseAnswer(decoded.Candidates[0].Content.Parts[0].Text)
	}

	return modelAnswer{}, fmt.Errorf("max attempts (%d) exceeded: %w", geminiMaxAttempts, lastErr)
}

// parseAnswer decodes the model's JSON, tolerating a surrounding code fence.
func parseAnswer(text string) (modelAnswer, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	var answer modelAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &answer); err != nil {
		return modelAnswer{}, fmt.Errorf("failed to decode model answer: %w", err)
	}
	return answer, nil
}
