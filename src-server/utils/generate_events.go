package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/olebedev/when"
)

// ErrExternalService marks a malformed or non-array response from the
// language model; callers must apply zero events when they see it.
var ErrExternalService = errors.New("could not generate events")

type GeneratedEvent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type EventGenerator struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	when       *when.Parser
}

func NewEventGenerator(apiKey string, whenParser *when.Parser) (*EventGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewEventGenerator: api key is blank")
	}
	return &EventGenerator{
		endpoint: "https://api.openai.com/v1/chat/completions",
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		when: whenParser,
	}, nil
}

// WithEndpoint overrides the completion endpoint, for tests.
func (g *EventGenerator) WithEndpoint(endpoint string) *EventGenerator {
	g.endpoint = endpoint
	return g
}

// Generate turns a free-text prompt into structured calendar entries. One
// automatic retry with backoff on network failure or a 5xx status; anything
// the model returns that is not a JSON array is an ErrExternalService.
func (g *EventGenerator) Generate(ctx context.Context, prompt string) ([]GeneratedEvent, error) {
	if prompt == "" {
		return nil, fmt.Errorf("(*EventGenerator).Generate: prompt is blank")
	}

	reqBody := struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}{
		Model: "gpt-3.5-turbo",
		Messages: []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{
			{
				Role: "system",
				Content: `You are a helpful assistant that generates calendar events.
Return ONLY a JSON array of events with title, description, and date fields.
Generate realistic dates in the next few days.
Example format: [{"title": "Family Dinner", "description": "Weekly family dinner at home", "date": "2024-12-10T18:00:00Z"}]`,
			},
			{
				Role:    "user",
				Content: prompt,
			},
		},
	}
	reqBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("(*EventGenerator).Generate: failed to marshal request body: %w", err)
	}

	doOnce := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", g.endpoint, bytes.NewReader(reqBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
		resp, err := g.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to do request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("bad status code: %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return nil, &permanentError{fmt.Errorf("bad status code: %d: %s", resp.StatusCode, string(body))}
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		return body, nil
	}

	body, err := doOnce()
	if err != nil {
		var permanent *permanentError
		if errors.As(err, &permanent) {
			return nil, fmt.Errorf("(*EventGenerator).Generate: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("(*EventGenerator).Generate: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
		if body, err = doOnce(); err != nil {
			return nil, fmt.Errorf("(*EventGenerator).Generate: %w", err)
		}
	}

	var respBody struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &respBody); err != nil {
		return nil, fmt.Errorf("(*EventGenerator).Generate: failed to unmarshal response: %w", err)
	}
	if len(respBody.Choices) == 0 {
		return nil, fmt.Errorf("(*EventGenerator).Generate: no choices: %w", ErrExternalService)
	}
	if len(respBody.Choices[0].Message.Content) == 0 {
		return nil, fmt.Errorf("(*EventGenerator).Generate: no content: %w", ErrExternalService)
	}

	var events []GeneratedEvent
	if err := json.Unmarshal([]byte(respBody.Choices[0].Message.Content), &events); err != nil {
		return nil, fmt.Errorf("(*EventGenerator).Generate: content is not an event array: %w", ErrExternalService)
	}

	return events, nil
}

// ParseDate accepts the model's RFC3339 dates and falls back to natural
// language ("next friday at 6pm") through the when parser.
func (g *EventGenerator) ParseDate(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("(*EventGenerator).ParseDate: date is blank")
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if g.when != nil {
		if result, err := g.when.Parse(raw, now.In(loc)); err == nil && result != nil {
			return result.Time, nil
		}
	}
	return time.Time{}, fmt.Errorf("(*EventGenerator).ParseDate: can't parse %q", raw)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }
