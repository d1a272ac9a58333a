package genai

import "context"

// MockClient is a canned AnalyzerClient for local runs and tests.
type MockClient struct{}

// NewMockClient creates a new mock analyzer client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ AnalyzerClient = (*MockClient)(nil)

// GetRiskAssessment always reports that no risk was found.
func (m *MockClient) GetRiskAssessment(ctx context.Context, prompt string) (*Analysis, error) {
	riskFound := false
	reasoning := "[MOCK] No indicators present in the conversation."
	return &Analysis{
		RiskFound:          &riskFound,
		DetectedIndicators: []string{},
		ClinicalReasoning:  &reasoning,
	}, nil
}
