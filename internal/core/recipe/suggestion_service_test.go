package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"receitas-ai/internal/core/ai/provider"
	"receitas-ai/internal/pkg/common"
)

type fakeProvider struct {
	mu        sync.Mutex
	responses []*provider.Response
	errs      []error
	requests  []*provider.Request
	noKey     bool
}

func (f *fakeProvider) Generate(_ context.Context, req *provider.Request) (*provider.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, errors.New("no more responses")
}

func (f *fakeProvider) GetModel() string          { return "fake-model" }
func (f *fakeProvider) GetTimeout() time.Duration { return time.Second }
func (f *fakeProvider) Close() error              { return nil }
func (f *fakeProvider) CheckCredentials() error {
	if f.noKey {
		return provider.ErrMissingCredentials
	}
	return nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// completed 產生 3 筆建議，每筆使用相同的食材
func completed(ingredients []string, extra []string) *provider.Response {
	items := make([]map[string]interface{}, 0, 3)
	for i := 0; i < 3; i++ {
		items = append(items, map[string]interface{}{
			"id":          "s" + string(rune('1'+i)),
			"title":       "Receita",
			"servings":    2,
			"timeMinutes": 30,
			"category":    "Prato principal",
			"ingredients": ingredients,
			"steps":       []string{"a", "b", "c", "d", "e", "f"},
			"extraNeeded": extra,
			"notes":       "",
		})
	}
	data, _ := json.Marshal(map[string]interface{}{"suggestions": items})
	return &provider.Response{Status: provider.StatusCompleted, OutputText: string(data)}
}

type recordingObserver struct {
	generations []string
	retries     []string
	violations  []int
	tokens      [2]int
}

func (r *recordingObserver) ObserveGeneration(_, outcome string, _ time.Duration) {
	r.generations = append(r.generations, outcome)
}
func (r *recordingObserver) ObserveStrictRetry(outcome string) { r.retries = append(r.retries, outcome) }
func (r *recordingObserver) ObserveViolations(n int)           { r.violations = append(r.violations, n) }
func (r *recordingObserver) ObserveTokens(_ string, in, out int) {
	r.tokens[0] += in
	r.tokens[1] += out
}

func TestSuggest_FreeModeSkipsValidation(t *testing.T) {
	fp := &fakeProvider{responses: []*provider.Response{completed([]string{"alho"}, []string{"alho"})}}
	svc := NewSuggestionService(fp)

	got, err := svc.Suggest(context.Background(), Request{Ingredients: "ovo, arroz", Servings: 2, AllowExtras: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d suggestions, want 3", len(got))
	}
	if fp.calls() != 1 {
		t.Errorf("expected 1 upstream call, got %d", fp.calls())
	}
	req := fp.requests[0]
	if req.SchemaName != SchemaName || req.Schema == nil {
		t.Errorf("schema not forwarded: %+v", req)
	}
	if !strings.Contains(req.System, "MODO LIVRE") {
		t.Error("free mode block missing from system prompt")
	}
}

func TestSuggest_StrictCleanFirstPass(t *testing.T) {
	fp := &fakeProvider{responses: []*provider.Response{completed([]string{"2 ovos", "1 xícara de arroz"}, nil)}}
	obs := &recordingObserver{}
	svc := NewSuggestionService(fp, WithObserver(obs))

	got, err := svc.Suggest(context.Background(), Request{Ingredients: "ovo, arroz", Servings: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || fp.calls() != 1 {
		t.Errorf("got %d suggestions after %d calls", len(got), fp.calls())
	}
	if len(obs.retries) != 0 {
		t.Errorf("no retry expected, got %v", obs.retries)
	}
}

func TestSuggest_StrictRetryRecovers(t *testing.T) {
	fp := &fakeProvider{responses: []*provider.Response{
		completed([]string{"2 ovos", "500g de alho"}, nil),
		completed([]string{"2 ovos", "arroz"}, []string{}),
	}}
	obs := &recordingObserver{}
	svc := NewSuggestionService(fp, WithObserver(obs), WithMaxOutputTokens(1200))

	got, err := svc.Suggest(context.Background(), Request{Ingredients: "ovo, arroz", Servings: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d suggestions, want 3", len(got))
	}
	if fp.calls() != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", fp.calls())
	}

	first, second := fp.requests[0], fp.requests[1]
	if strings.Contains(first.System, "QUEBROU") {
		t.Error("first attempt must not carry the nudge")
	}
	if !strings.Contains(second.System, `Sugestão 1: ingrediente fora da lista -> "500g de alho"`) {
		t.Errorf("second attempt must list the violations, got:\n%s", second.System)
	}
	if second.MaxOutputTokens != 1200 {
		t.Errorf("MaxOutputTokens = %d, want 1200", second.MaxOutputTokens)
	}
	if len(obs.retries) != 1 || obs.retries[0] != OutcomeRecovered {
		t.Errorf("retries = %v, want [recovered]", obs.retries)
	}
	if len(obs.violations) != 1 || obs.violations[0] != 3 {
		t.Errorf("violations = %v, want [3]", obs.violations)
	}
	if strings.Join(obs.generations, ",") != OutcomeViolation+","+OutcomeSuccess {
		t.Errorf("generations = %v, want [violation success]", obs.generations)
	}
}

func TestSuggest_ObservesTokensAndOutcomes(t *testing.T) {
	resp := completed([]string{"ovo"}, nil)
	resp.Usage = provider.Usage{InputTokens: 300, OutputTokens: 900, TotalTokens: 1200}
	fp := &fakeProvider{responses: []*provider.Response{resp}}
	obs := &recordingObserver{}
	svc := NewSuggestionService(fp, WithObserver(obs))

	if _, err := svc.Suggest(context.Background(), Request{Ingredients: "ovo", Servings: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.tokens != [2]int{300, 900} {
		t.Errorf("tokens = %v, want [300 900]", obs.tokens)
	}
	if len(obs.generations) != 1 || obs.generations[0] != OutcomeSuccess {
		t.Errorf("generations = %v, want [success]", obs.generations)
	}

	failing := &fakeProvider{errs: []error{errors.New("boom")}}
	obs = &recordingObserver{}
	svc = NewSuggestionService(failing, WithObserver(obs))
	if _, err := svc.Suggest(context.Background(), Request{Ingredients: "ovo", Servings: 2}); err == nil {
		t.Fatal("expected error")
	}
	if len(obs.generations) != 1 || obs.generations[0] != OutcomeError {
		t.Errorf("generations = %v, want [error]", obs.generations)
	}
}

func TestSuggest_UpstreamDetailsCarryRawResponse(t *testing.T) {
	raw := []byte(`{"status":"incomplete","incomplete_details":{"reason":"max_output_tokens"}}`)
	tests := []struct {
		name string
		resp *provider.Response
	}{
		{"incomplete", &provider.Response{Status: provider.StatusIncomplete, Raw: raw}},
		{"refusal", &provider.Response{Status: provider.StatusCompleted, Refusal: "não", Raw: raw}},
		{"missing output", &provider.Response{Status: provider.StatusCompleted, Raw: raw}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := &fakeProvider{responses: []*provider.Response{tt.resp}}
			_, err := NewSuggestionService(fp).Suggest(context.Background(), Request{Ingredients: "ovo", Servings: 2})
			ce, ok := common.AsCustomError(err)
			if !ok {
				t.Fatalf("expected CustomError, got %v", err)
			}
			outer := ce.Details.(map[string]interface{})
			inner, ok := outer["details"].(map[string]interface{})
			if !ok || inner["raw"] != string(raw) {
				t.Errorf("details = %#v", outer)
			}
		})
	}
}

func TestSuggest_StrictRetryFails(t *testing.T) {
	fp := &fakeProvider{responses: []*provider.Response{
		completed([]string{"alho"}, nil),
		completed([]string{"ovo"}, []string{"cebola"}),
		completed([]string{"ovo"}, nil),
	}}
	svc := NewSuggestionService(fp)

	_, err := svc.Suggest(context.Background(), Request{Ingredients: "ovo, arroz", Servings: 2})
	ce, ok := common.AsCustomError(err)
	if !ok {
		t.Fatalf("expected CustomError, got %v", err)
	}
	if ce.Status != http.StatusBadRequest || ce.Code != common.ErrCodeStrictViolation {
		t.Errorf("got status=%d code=%s", ce.Status, ce.Code)
	}
	if ce.Message != common.MsgStrictViolation {
		t.Errorf("message = %q", ce.Message)
	}
	details := ce.Details.(map[string]interface{})
	violations := details["violations"].([]string)
	if len(violations) != 3 || !strings.Contains(violations[0], "extraNeeded") {
		t.Errorf("violations must come from the second pass, got %q", violations)
	}
	if fp.calls() != 2 {
		t.Errorf("expected exactly 2 upstream calls, got %d", fp.calls())
	}
}

func TestSuggest_NudgeCarriesAtMostEightViolations(t *testing.T) {
	bad := []string{"alho", "cebola", "sal", "pimenta"}
	fp := &fakeProvider{responses: []*provider.Response{
		completed(bad, nil),
		completed([]string{"ovo"}, nil),
	}}
	svc := NewSuggestionService(fp)

	if _, err := svc.Suggest(context.Background(), Request{Ingredients: "ovo", Servings: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := strings.Count(fp.requests[1].System, "fora da lista ->"); n != 8 {
		t.Errorf("nudge lists %d violations, want 8", n)
	}
}

func TestSuggest_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name    string
		resp    *provider.Response
		err     error
		message string
	}{
		{
			name:    "transport error",
			err:     errors.New("connection refused"),
			message: "connection refused",
		},
		{
			name:    "incomplete",
			resp:    &provider.Response{Status: provider.StatusIncomplete},
			message: "Resposta incompleta do modelo.",
		},
		{
			name:    "refusal",
			resp:    &provider.Response{Status: provider.StatusCompleted, Refusal: "não posso"},
			message: "O modelo recusou o pedido.",
		},
		{
			name:    "missing output",
			resp:    &provider.Response{Status: provider.StatusCompleted},
			message: "Sem output_text na resposta.",
		},
		{
			name:    "fewer than three",
			resp:    &provider.Response{Status: provider.StatusCompleted, OutputText: `{"suggestions":[{"title":"x"}]}`},
			message: "O modelo retornou menos de 3 sugestões.",
		},
		{
			name:    "malformed json",
			resp:    &provider.Response{Status: provider.StatusCompleted, OutputText: "sem json"},
			message: "parse model output",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := &fakeProvider{responses: []*provider.Response{tt.resp}, errs: []error{tt.err}}
			svc := NewSuggestionService(fp)

			_, err := svc.Suggest(context.Background(), Request{Ingredients: "ovo, arroz", Servings: 2})
			ce, ok := common.AsCustomError(err)
			if !ok {
				t.Fatalf("expected CustomError, got %v", err)
			}
			if ce.Status != http.StatusInternalServerError || ce.Message != common.MsgUpstream {
				t.Errorf("got status=%d message=%q", ce.Status, ce.Message)
			}
			details := ce.Details.(map[string]interface{})
			if msg, _ := details["message"].(string); !strings.Contains(msg, tt.message) {
				t.Errorf("details.message = %q, want it to contain %q", msg, tt.message)
			}
			if fp.calls() != 1 {
				t.Errorf("upstream failures must not be retried, got %d calls", fp.calls())
			}
		})
	}
}

func TestSuggest_StatusErrorDetails(t *testing.T) {
	fp := &fakeProvider{errs: []error{&provider.StatusError{Provider: "openai", StatusCode: 429, Body: `{"error":{"message":"rate limited"}}`}}}
	svc := NewSuggestionService(fp)

	_, err := svc.Suggest(context.Background(), Request{Ingredients: "ovo", Servings: 2})
	ce, _ := common.AsCustomError(err)
	if ce == nil {
		t.Fatalf("expected CustomError, got %v", err)
	}
	details := ce.Details.(map[string]interface{})
	inner, ok := details["details"].(map[string]interface{})
	if !ok || inner["status"] != 429 {
		t.Errorf("details = %#v", details)
	}
}

func TestSuggest_InputAndConfigErrors(t *testing.T) {
	fp := &fakeProvider{}
	svc := NewSuggestionService(fp)

	_, err := svc.Suggest(context.Background(), Request{Ingredients: " ab "})
	if ce, ok := common.AsCustomError(err); !ok || ce.Status != http.StatusBadRequest || ce.Message != common.MsgShortIngredients {
		t.Errorf("short ingredients: got %v", err)
	}

	fp.noKey = true
	_, err = svc.Suggest(context.Background(), Request{Ingredients: "ovo, arroz"})
	if ce, ok := common.AsCustomError(err); !ok || ce.Status != http.StatusInternalServerError || ce.Code != common.ErrCodeConfigError {
		t.Errorf("missing key: got %v", err)
	}
	if fp.calls() != 0 {
		t.Errorf("no upstream call expected, got %d", fp.calls())
	}
}
