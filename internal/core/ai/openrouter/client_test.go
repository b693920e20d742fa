package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"receitas-ai/internal/core/ai/provider"
)

func TestGenerate_ChatCompletions(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer or-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Title") == "" {
			t.Error("X-Title header missing")
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"id":"gen-1","choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"{\"suggestions\":[]}"}}],"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`))
	}))
	defer srv.Close()

	client := NewClient(provider.Config{APIKey: "or-key", BaseURL: srv.URL, Timeout: 5 * time.Second, MaxOutputTokens: 4096})
	resp, err := client.Generate(context.Background(), &provider.Request{
		System:     "sys",
		User:       "usr",
		SchemaName: "recipe_suggestions",
		Schema:     map[string]interface{}{"type": "object"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Model != DefaultModel || got.MaxTokens != 4096 {
		t.Errorf("request = %+v", got)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_schema" || !got.ResponseFormat.JSONSchema.Strict {
		t.Errorf("response_format = %+v", got.ResponseFormat)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if resp.Status != provider.StatusCompleted || resp.OutputText != `{"suggestions":[]}` {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestToProviderResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  string
		refusal string
	}{
		{"length is incomplete", `{"choices":[{"finish_reason":"length","message":{"content":"{"}}]}`, provider.StatusIncomplete, ""},
		{"refusal", `{"choices":[{"finish_reason":"stop","message":{"content":"","refusal":"no"}}]}`, provider.StatusCompleted, "no"},
		{"no choices", `{"choices":[]}`, provider.StatusFailed, ""},
		{"error payload", `{"error":{"message":"boom","code":502}}`, provider.StatusFailed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Response
			if err := json.Unmarshal([]byte(tt.body), &r); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got := toProviderResponse(&r, []byte(tt.body))
			if got.Status != tt.status || got.Refusal != tt.refusal {
				t.Errorf("got status=%q refusal=%q", got.Status, got.Refusal)
			}
		})
	}
}

func TestGenerate_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream down`))
	}))
	defer srv.Close()

	client := NewClient(provider.Config{APIKey: "k", BaseURL: srv.URL})
	_, err := client.Generate(context.Background(), &provider.Request{})
	var se *provider.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway || se.Body != "upstream down" {
		t.Errorf("err = %v", err)
	}
}

func TestCheckCredentials(t *testing.T) {
	client := NewClient(provider.Config{})
	if !errors.Is(client.CheckCredentials(), provider.ErrMissingCredentials) {
		t.Error("expected missing credentials")
	}
	if client.GetModel() != DefaultModel {
		t.Errorf("model = %q", client.GetModel())
	}
}
