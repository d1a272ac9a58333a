// Package genai provides the AI risk-analysis clients and the analyzer that
// drives them.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Analysis is the structured result of one risk assessment. All fields are
// optional; providers are not guaranteed to fill every one.
type Analysis struct {
	RiskFound          *bool    `json:"risk_found,omitempty"`
	RiskLevel          *string  `json:"risk_level,omitempty"`
	DetectedIndicators []string `json:"detected_indicators,omitempty"`
	ClinicalReasoning  *string  `json:"clinical_reasoning,omitempty"`
	RecommendedAction  *string  `json:"recommended_action,omitempty"`
}

// AnalyzerClient defines the interface for AI risk-assessment providers.
type AnalyzerClient interface {
	// GetRiskAssessment sends the prompt to the provider and returns the
	// parsed assessment. It may fail transiently.
	GetRiskAssessment(ctx context.Context, prompt string) (*Analysis, error)
}

// parseAnalysis parses a provider response body into an Analysis. Some models
// wrap JSON output in markdown code fences even when asked not to, so fences
// are stripped first.
func parseAnalysis(text string) (*Analysis, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var analysis Analysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}
	return &analysis, nil
}
