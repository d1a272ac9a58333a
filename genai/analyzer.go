package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/lsvinicius/mental-health/domain"
	"github.com/lsvinicius/mental-health/policy"
	"github.com/lsvinicius/mental-health/store"
)

// historyPlaceholder is substituted with the rendered transcript when the
// prompt is built.
const historyPlaceholder = "{{conversation_history}}"

// RiskAnalyzer assesses one conversation: it renders the transcript into the
// instruction template, asks the analyzer client and persists the result.
type RiskAnalyzer struct {
	store        store.Store
	client       AnalyzerClient
	policyEngine *policy.Engine
	prompt       string
}

// NewRiskAnalyzer creates a risk analyzer with the instruction template at
// promptPath. The template is loaded once.
func NewRiskAnalyzer(s store.Store, client AnalyzerClient, policyEngine *policy.Engine, promptPath string) (*RiskAnalyzer, error) {
	prompt, err := loadPromptTemplate(promptPath)
	if err != nil {
		return nil, err
	}
	return &RiskAnalyzer{
		store:        s,
		client:       client,
		policyEngine: policyEngine,
		prompt:       prompt,
	}, nil
}

// loadPromptTemplate reads and re-renders the YAML instruction template so a
// malformed file fails at startup, not at analysis time.
func loadPromptTemplate(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template: %w", err)
	}
	var template map[string]interface{}
	if err := yaml.Unmarshal(raw, &template); err != nil {
		return "", fmt.Errorf("failed to parse prompt template: %w", err)
	}
	rendered, err := yaml.Marshal(template)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt template: %w", err)
	}
	return string(rendered), nil
}

// Analyze runs one risk assessment for the conversation and persists the
// finding. The conversation must exist in the read model.
func (a *RiskAnalyzer) Analyze(ctx context.Context, conversationID string) (*domain.ConversationRiskAnalysis, error) {
	conversation, err := a.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conversation == nil {
		return nil, fmt.Errorf("%w: conversation %s", domain.ErrNotFound, conversationID)
	}

	messages, err := a.store.GetConversationMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	prompt := strings.ReplaceAll(a.prompt, historyPlaceholder, renderTranscript(messages))
	analysis, err := a.client.GetRiskAssessment(ctx, prompt)
	if err != nil {
		return nil, err
	}

	detectedRisk := analysis.RiskFound != nil && *analysis.RiskFound
	escalation := a.escalationDecision(ctx, analysis, detectedRisk)

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis: %w", err)
	}

	risk := &domain.ConversationRiskAnalysis{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Analysis:       analysisJSON,
		DetectedRisk:   detectedRisk,
		Escalation:     escalation,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.store.CreateRiskAnalysis(ctx, risk); err != nil {
		return nil, fmt.Errorf("failed to save risk analysis: %w", err)
	}
	return risk, nil
}

func (a *RiskAnalyzer) escalationDecision(ctx context.Context, analysis *Analysis, detectedRisk bool) string {
	if a.policyEngine == nil {
		return policy.DecisionNone
	}

	input := map[string]interface{}{"risk_found": detectedRisk}
	if analysis.RiskLevel != nil {
		input["risk_level"] = *analysis.RiskLevel
	}
	decision, err := a.policyEngine.Evaluate(ctx, input)
	if err != nil {
		log.Printf("ERROR: failed to evaluate escalation policy: %v", err)
		return policy.DecisionNone
	}
	return decision
}

// renderTranscript renders messages as "sender: text" lines in version order.
func renderTranscript(messages []domain.ConversationMessage) string {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(msg.Sender)
		b.WriteString(": ")
		b.WriteString(msg.Text)
		b.WriteString("\n")
	}
	return b.String()
}
