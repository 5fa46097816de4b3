package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
)

// mockOpenAIServer mimics the model lookup and chat completion endpoints of
// an OpenAI-compatible server. Only models in known exist.
func mockOpenAIServer(t *testing.T, known []string, reply string, status int) (*httptest.Server, *[]openai.ChatCompletionRequest) {
	t.Helper()
	var requests []openai.ChatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/models/"):
			id := strings.TrimPrefix(r.URL.Path, "/v1/models/")
			for _, k := range known {
				if k == id {
					json.NewEncoder(w).Encode(openai.Model{ID: id, Object: "model", OwnedBy: "local"})
					return
				}
			}
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "model " + id + " not found", "type": "invalid_request_error"},
			})

		case r.Method == http.MethodPost && r.URL.Path == "/v1/chat/completions":
			var req openai.ChatCompletionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			requests = append(requests, req)

			if status != http.StatusOK {
				w.WriteHeader(status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{
						"message": reply,
						"type":    "invalid_request_error",
						"code":    "context_length_exceeded",
					},
				})
				return
			}
			json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
				Model: req.Model,
				Choices: []openai.ChatCompletionChoice{
					{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply}},
				},
			})

		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestOpenAIEngine_ReloadAndComplete(t *testing.T) {
	server, requests := mockOpenAIServer(t, []string{"phi-3-mini-4k-instruct"}, "要約です", http.StatusOK)
	engine := NewOpenAIEngine(OpenAIConfig{FallbackURL: server.URL + "/v1"}, nil)

	var reports []string
	engine.SetInitProgressCallback(func(p InitProgress) { reports = append(reports, p.String()) })

	if err := engine.Reload(context.Background(), "phi-3-mini-4k-instruct"); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if engine.Model() != "phi-3-mini-4k-instruct" {
		t.Errorf("Model() = %q, want phi-3-mini-4k-instruct", engine.Model())
	}
	if len(reports) != 2 || reports[1] != "Model phi-3-mini-4k-instruct ready (100%)" {
		t.Errorf("progress reports = %v", reports)
	}

	resp, err := engine.Complete(context.Background(), CompletionRequest{
		Messages:    []Message{UserMessage("テキスト")},
		Temperature: 0.7,
		MaxTokens:   400,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.FirstText() != "要約です" {
		t.Errorf("FirstText() = %q, want 要約です", resp.FirstText())
	}

	got := (*requests)[0]
	if got.Model != "phi-3-mini-4k-instruct" || got.MaxTokens != 400 || got.Temperature != 0.7 {
		t.Errorf("request = model %q max_tokens %d temperature %v", got.Model, got.MaxTokens, got.Temperature)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != RoleUser || got.Messages[0].Content != "テキスト" {
		t.Errorf("request messages = %+v", got.Messages)
	}
}

func TestOpenAIEngine_ReloadUnknownModel(t *testing.T) {
	server, _ := mockOpenAIServer(t, nil, "", http.StatusOK)
	engine := NewOpenAIEngine(OpenAIConfig{BaseURL: server.URL + "/v1"}, nil)

	err := engine.Reload(context.Background(), "missing-model")
	if !errors.Is(err, ErrModelLoadFailed) {
		t.Fatalf("Reload() error = %v, want ErrModelLoadFailed", err)
	}
	var ce *CompletionError
	if !errors.As(err, &ce) || ce.Op != "reload" || ce.Model != "missing-model" {
		t.Errorf("Reload() error = %#v, want reload CompletionError", err)
	}
	if engine.Model() != "" {
		t.Errorf("Model() = %q, want empty after failed reload", engine.Model())
	}
}

func TestOpenAIEngine_CompleteBeforeReload(t *testing.T) {
	engine := NewOpenAIEngine(OpenAIConfig{BaseURL: "http://127.0.0.1:1/v1"}, nil)

	_, err := engine.Complete(context.Background(), CompletionRequest{Messages: []Message{UserMessage("x")}})
	if !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("Complete() error = %v, want ErrModelNotLoaded", err)
	}
}

func TestOpenAIEngine_CompleteBackendError(t *testing.T) {
	const msg = "This model's maximum context length is 4096 tokens"
	server, _ := mockOpenAIServer(t, []string{"m"}, msg, http.StatusBadRequest)
	engine := NewOpenAIEngine(OpenAIConfig{BaseURL: server.URL + "/v1"}, nil)
	if err := engine.Reload(context.Background(), "m"); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	_, err := engine.Complete(context.Background(), CompletionRequest{Messages: []Message{UserMessage("x")}})
	var ce *CompletionError
	if !errors.As(err, &ce) {
		t.Fatalf("Complete() error = %v, want *CompletionError", err)
	}
	if ce.Message != msg {
		t.Errorf("Message = %q, want backend message %q", ce.Message, msg)
	}
}

func TestResolveBaseURL(t *testing.T) {
	tests := []struct{ primary, fallback, want string }{
		{"http://a", "http://b", "http://a"},
		{"", "http://b", "http://b"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := ResolveBaseURL(tt.primary, tt.fallback); got != tt.want {
			t.Errorf("ResolveBaseURL(%q, %q) = %q, want %q", tt.primary, tt.fallback, got, tt.want)
		}
	}
}

func TestInitProgressString(t *testing.T) {
	tests := []struct {
		p    InitProgress
		want string
	}{
		{InitProgress{Text: "Loading", Progress: 0}, "Loading (0%)"},
		{InitProgress{Text: "Loading", Progress: 0.456}, "Loading (46%)"},
		{InitProgress{Text: "Done", Progress: 1}, "Done (100%)"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFirstText(t *testing.T) {
	var nilResp *CompletionResponse
	if nilResp.FirstText() != "" {
		t.Error("nil response FirstText() should be empty")
	}
	if (&CompletionResponse{}).FirstText() != "" {
		t.Error("no choices FirstText() should be empty")
	}
	resp := &CompletionResponse{Choices: []Choice{{Text: "a"}, {Text: "b"}}}
	if resp.FirstText() != "a" {
		t.Errorf("FirstText() = %q, want a", resp.FirstText())
	}
}
