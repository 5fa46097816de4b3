package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SummaryPolicy overrides summarization settings from a YAML file.
// Absent keys leave the environment-derived values untouched.
//
// Example file:
//
//	safe_text_length: 2000
//	chunk_max_tokens: 300
//	model_candidates:
//	  - qwen2.5-3b-instruct
type SummaryPolicy struct {
	SafeTextLength      *int     `yaml:"safe_text_length"`
	ChunkSize           *int     `yaml:"chunk_size"`
	ChunkMaxTokens      *int     `yaml:"chunk_max_tokens"`
	FinalMaxTokens      *int     `yaml:"final_max_tokens"`
	Temperature         *float64 `yaml:"temperature"`
	DefaultMaxLength    *int     `yaml:"default_max_length"`
	ModelCandidates     []string `yaml:"model_candidates"`
	ContextLimitMarkers []string `yaml:"context_limit_markers"`
}

// LoadSummaryPolicy reads and parses a policy file.
func LoadSummaryPolicy(path string) (*SummaryPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrPolicyFile(path, err.Error())
	}

	var policy SummaryPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, ErrPolicyFile(path, fmt.Sprintf("invalid YAML: %v", err))
	}
	return &policy, nil
}

// ApplyTo copies every set policy value onto cfg.
func (p *SummaryPolicy) ApplyTo(cfg *Config) {
	if p == nil || cfg == nil {
		return
	}
	if p.SafeTextLength != nil {
		cfg.SafeTextLength = *p.SafeTextLength
	}
	if p.ChunkSize != nil {
		cfg.ChunkSize = *p.ChunkSize
	}
	if p.ChunkMaxTokens != nil {
		cfg.ChunkMaxTokens = *p.ChunkMaxTokens
	}
	if p.FinalMaxTokens != nil {
		cfg.FinalMaxTokens = *p.FinalMaxTokens
	}
	if p.Temperature != nil {
		cfg.Temperature = *p.Temperature
	}
	if p.DefaultMaxLength != nil {
		cfg.DefaultMaxLength = *p.DefaultMaxLength
	}
	if len(p.ModelCandidates) > 0 {
		cfg.ModelCandidates = append([]string(nil), p.ModelCandidates...)
	}
	if len(p.ContextLimitMarkers) > 0 {
		cfg.ContextLimitMarkers = append([]string(nil), p.ContextLimitMarkers...)
	}
}
