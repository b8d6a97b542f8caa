package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/moodmix/internal/shared"
)

// chatServer serves /v1/chat/completions with the given assistant content and records the last request body.
func chatServer(t *testing.T, status int, content string, refusal string) (*httptest.Server, *map[string]any, *atomic.Int32) {
	t.Helper()

	var last map[string]any
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization header %q", got)
		}

		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &last)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			io.WriteString(w, `{"error":{"message":"upstream exploded","type":"server_error"}}`)
			return
		}

		msg := map[string]any{"role": "assistant", "content": content}
		if refusal != "" {
			msg["refusal"] = refusal
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-2024-08-06",
			"choices": []map[string]any{{"index": 0, "message": msg, "finish_reason": "stop"}},
		})
	}))
	t.Cleanup(srv.Close)

	return srv, &last, &calls
}

func newTestGenerator(t *testing.T, baseURL string) *OpenAIGenerator {
	t.Helper()
	g, err := NewOpenAIGenerator(shared.OpenAIConfig{APIKey: "sk-test", BaseURL: baseURL + "/v1/"}, 0, shared.NewLogger(io.Discard))
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}
	return g
}

func TestOpenAIGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("NewOpenAIGenerator", func(t *testing.T) {
		t.Run("requires api key", func(t *testing.T) {
			_, err := NewOpenAIGenerator(shared.OpenAIConfig{}, 0, nil)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("applies defaults", func(t *testing.T) {
			g, err := NewOpenAIGenerator(shared.OpenAIConfig{APIKey: "sk"}, 0, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if g.model != defaultModel {
				t.Errorf("expected model %s, got %s", defaultModel, g.model)
			}
			if g.defaultCount != DefaultSongCount {
				t.Errorf("expected default count %d, got %d", DefaultSongCount, g.defaultCount)
			}
		})
	})

	t.Run("valid structured response", func(t *testing.T) {
		content := `{"playlistName":"Vogue Nights","tracks":[
			{"trackAuthor":"Madonna","trackName":"Vogue"},
			{"trackAuthor":"Whitney Houston","trackName":"I Wanna Dance with Somebody"}]}`
		srv, last, _ := chatServer(t, http.StatusOK, content, "")
		g := newTestGenerator(t, srv.URL)

		s, err := g.GenerateCandidates(ctx, "80s dance pop", 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if s.Name != "Vogue Nights" {
			t.Errorf("expected name Vogue Nights, got %q", s.Name)
		}
		if len(s.Candidates) != 2 || s.Candidates[0].Artist != "Madonna" || s.Candidates[1].Title != "I Wanna Dance with Somebody" {
			t.Errorf("unexpected candidates %+v", s.Candidates)
		}

		req := *last
		messages, _ := req["messages"].([]any)
		if len(messages) != 2 {
			t.Fatalf("expected system and user messages, got %v", req["messages"])
		}
		system := messages[0].(map[string]any)["content"].(string)
		if !strings.Contains(system, "Generate a list of 2 songs") {
			t.Errorf("system prompt should carry the count, got %q", system)
		}
		if user := messages[1].(map[string]any)["content"]; user != "80s dance pop" {
			t.Errorf("user message should be the prompt, got %v", user)
		}

		format, _ := req["response_format"].(map[string]any)
		if format["type"] != "json_schema" {
			t.Errorf("expected json_schema response format, got %v", format["type"])
		}
		schema, _ := format["json_schema"].(map[string]any)
		if schema["name"] != schemaName || schema["strict"] != true {
			t.Errorf("unexpected schema envelope %v", schema)
		}
	})

	t.Run("count mismatch is accepted", func(t *testing.T) {
		content := `{"playlistName":"Short","tracks":[{"trackAuthor":"A","trackName":"B"}]}`
		srv, last, _ := chatServer(t, http.StatusOK, content, "")
		g := newTestGenerator(t, srv.URL)

		s, err := g.GenerateCandidates(ctx, "anything", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(s.Candidates) != 1 {
			t.Errorf("expected 1 candidate, got %d", len(s.Candidates))
		}

		messages := (*last)["messages"].([]any)
		if !strings.Contains(messages[0].(map[string]any)["content"].(string), "20 songs") {
			t.Error("expected default count of 20 in system prompt")
		}
	})

	t.Run("contract violations fail generation", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
			refusal string
		}{
			{name: "missing playlistName", content: `{"tracks":[{"trackAuthor":"Madonna","trackName":"Vogue"}]}`},
			{name: "blank playlistName", content: `{"playlistName":"  ","tracks":[{"trackAuthor":"Madonna","trackName":"Vogue"}]}`},
			{name: "missing tracks", content: `{"playlistName":"Mix"}`},
			{name: "empty tracks", content: `{"playlistName":"Mix","tracks":[]}`},
			{name: "track missing title", content: `{"playlistName":"Mix","tracks":[{"trackAuthor":"Madonna"}]}`},
			{name: "wrong types", content: `{"playlistName":3,"tracks":"Vogue"}`},
			{name: "not json", content: `Here are some songs you might like!`},
			{name: "refusal", content: "", refusal: "I can't help with that."},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				srv, _, calls := chatServer(t, http.StatusOK, tt.content, tt.refusal)
				g := newTestGenerator(t, srv.URL)

				s, err := g.GenerateCandidates(ctx, "80s dance pop", 2)
				if !errors.Is(err, shared.ErrGenerationFailed) {
					t.Fatalf("expected ErrGenerationFailed, got %v (%+v)", err, s)
				}
				if calls.Load() != 1 {
					t.Errorf("expected exactly one request, got %d", calls.Load())
				}
			})
		}
	})

	t.Run("transport failure fails generation", func(t *testing.T) {
		srv, _, calls := chatServer(t, http.StatusInternalServerError, "", "")
		g := newTestGenerator(t, srv.URL)

		_, err := g.GenerateCandidates(ctx, "anything", 3)
		if !errors.Is(err, shared.ErrGenerationFailed) {
			t.Fatalf("expected ErrGenerationFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "status 500") {
			t.Errorf("expected status in error, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("generation must not retry, got %d calls", calls.Load())
		}
	})

	t.Run("empty prompt", func(t *testing.T) {
		g, _ := NewOpenAIGenerator(shared.OpenAIConfig{APIKey: "sk"}, 0, nil)
		if _, err := g.GenerateCandidates(ctx, "   ", 5); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
