package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestComplete_Success(t *testing.T) {
	var gotBody chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected Authorization header: %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{"choices": [{"message": {"content": "  A tailored proposal.  "}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", "gpt-4o-mini", srv.Client())
	out, err := c.Complete(context.Background(), "system prompt", "user prompt", 200, 0.7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "A tailored proposal." {
		t.Errorf("expected trimmed content, got %q", out)
	}
	if gotBody.Model != "gpt-4o-mini" {
		t.Errorf("unexpected model: %s", gotBody.Model)
	}
	if gotBody.MaxTokens != 200 || gotBody.Temperature != 0.7 {
		t.Errorf("unexpected limits: max_tokens=%d temperature=%v", gotBody.MaxTokens, gotBody.Temperature)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" || gotBody.Messages[1].Role != "user" {
		t.Errorf("unexpected messages: %+v", gotBody.Messages)
	}
}

func TestComplete_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", "gpt-4o-mini", srv.Client())
	_, err := c.Complete(context.Background(), "s", "u", 200, 0.7)
	if err == nil {
		t.Fatal("expected error for HTTP 429, got nil")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("expected status code in error, got %v", err)
	}
}

func TestComplete_APIErrorObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"message": "invalid model", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", "bad-model", srv.Client())
	_, err := c.Complete(context.Background(), "s", "u", 200, 0.7)
	if err == nil {
		t.Fatal("expected error for API error object, got nil")
	}
	if !strings.Contains(err.Error(), "invalid model") {
		t.Errorf("expected API error message, got %v", err)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", "gpt-4o-mini", srv.Client())
	_, err := c.Complete(context.Background(), "s", "u", 200, 0.7)
	if err == nil {
		t.Fatal("expected error for empty choices, got nil")
	}
}
