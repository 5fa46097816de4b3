package llm

import (
	"testing"

	"pdf_summarizer/core"
)

func TestNewEngineFactory(t *testing.T) {
	tests := []struct {
		name    string
		cfg     core.Config
		want    string
		wantErr bool
	}{
		{"openai with breaker", core.Config{Provider: core.ProviderOpenAI, BaseLLMURL: "http://127.0.0.1:1234/v1", BreakerEnabled: true}, "breaker", false},
		{"openai bare", core.Config{Provider: core.ProviderOpenAI, BaseLLMURL: "http://127.0.0.1:1234/v1"}, "openai", false},
		{"anthropic", core.Config{Provider: core.ProviderAnthropic, AnthropicAPIKey: "sk-ant-test"}, "anthropic", false},
		{"anthropic without key", core.Config{Provider: core.ProviderAnthropic}, "", true},
		{"unknown provider", core.Config{Provider: "webllm"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			engine, err := NewEngineFactory(&cfg, nil)()
			if (err != nil) != tt.wantErr {
				t.Fatalf("factory() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			var got string
			switch engine.(type) {
			case *BreakerEngine:
				got = "breaker"
			case *OpenAIEngine:
				got = "openai"
			case *AnthropicEngine:
				got = "anthropic"
			}
			if got != tt.want {
				t.Errorf("engine type = %T, want %s", engine, tt.want)
			}
		})
	}
}
