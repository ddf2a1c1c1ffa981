package utils_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hearth/src-server/utils"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices": [{"message": {"content": %q}}]}`, content)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGenerateParsesEventArray(t *testing.T) {
	server := completionServer(t,
		`[{"title": "Family Dinner", "description": "Weekly dinner", "date": "2024-12-10T18:00:00Z"}]`)
	generator, err := utils.NewEventGenerator("test-key", nil)
	if err != nil {
		t.Fatal(err)
	}
	generator.WithEndpoint(server.URL)

	events, err := generator.Generate(context.Background(), "plan dinner")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatal("expected one event", events)
	}
	if events[0].Title != "Family Dinner" || events[0].Date != "2024-12-10T18:00:00Z" {
		t.Error("event fields not parsed", events[0])
	}
}

// a non-array payload must surface as an external service error and yield
// zero events
func TestGenerateRejectsNonArrayContent(t *testing.T) {
	server := completionServer(t, `{"events": "not-an-array"}`)
	generator, err := utils.NewEventGenerator("test-key", nil)
	if err != nil {
		t.Fatal(err)
	}
	generator.WithEndpoint(server.URL)

	events, err := generator.Generate(context.Background(), "plan dinner")
	if !errors.Is(err, utils.ErrExternalService) {
		t.Error("expected ErrExternalService", err)
	}
	if len(events) != 0 {
		t.Error("no events should be returned on malformed content", events)
	}
}

func TestGenerateRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": []}`))
	}))
	t.Cleanup(server.Close)

	generator, err := utils.NewEventGenerator("test-key", nil)
	if err != nil {
		t.Fatal(err)
	}
	generator.WithEndpoint(server.URL)

	if _, err := generator.Generate(context.Background(), "plan dinner"); !errors.Is(err, utils.ErrExternalService) {
		t.Error("expected ErrExternalService", err)
	}
}

// one automatic retry on a 5xx, then success
func TestGenerateRetriesOnServerError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices": [{"message": {"content": %q}}]}`, `[]`)
	}))
	t.Cleanup(server.Close)

	generator, err := utils.NewEventGenerator("test-key", nil)
	if err != nil {
		t.Fatal(err)
	}
	generator.WithEndpoint(server.URL)

	if _, err := generator.Generate(context.Background(), "plan dinner"); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Error("expected exactly one retry", calls)
	}
}

func TestNewEventGeneratorBlankKey(t *testing.T) {
	if _, err := utils.NewEventGenerator("", nil); err == nil {
		t.Error("blank api key should be rejected")
	}
}

func TestParseDate(t *testing.T) {
	whenParser := when.New(nil)
	whenParser.Add(en.All...)
	whenParser.Add(common.All...)

	generator, err := utils.NewEventGenerator("test-key", whenParser)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	// RFC3339 straight through
	parsed, err := generator.ParseDate("2024-06-12T18:00:00Z", now, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if !parsed.Equal(time.Date(2024, 6, 12, 18, 0, 0, 0, time.UTC)) {
		t.Error("unexpected parsed time", parsed)
	}

	// natural language falls back to the when parser
	parsed, err = generator.ParseDate("tomorrow at 6pm", now, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Day() != 11 || parsed.Hour() != 18 {
		t.Error("natural language date not parsed as expected", parsed)
	}

	// garbage is an error
	if _, err := generator.ParseDate("", now, time.UTC); err == nil {
		t.Error("blank date should be rejected")
	}
}
