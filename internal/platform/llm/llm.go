// Package llm generates medical necessity summaries for prior authorization
// requests. The OpenAI client sits behind a Generator interface so services
// and tests can swap in the mock.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrDisabled is returned when summary generation is requested but the
// feature flag is off. Handlers map it to 503.
var ErrDisabled = errors.New("llm summary generation is disabled")

// Input carries the clinical context for one summary draft.
type Input struct {
	ProcedureCode  string
	Modality       string
	Diagnosis      string
	PayerName      string
	ClinicalNotes  []string
	OCRText        []string
	PolicySnippets []string
}

// Output is a generated summary draft.
type Output struct {
	MedicalNecessity string `json:"medical_necessity"`
	Indications      string `json:"indications"`
	RiskBenefit      string `json:"risk_benefit"`
	ModelID          string `json:"model_id"`
}

// Generator produces a summary draft from clinical context.
type Generator interface {
	Generate(ctx context.Context, in Input) (*Output, error)
}

const systemPrompt = "You are a clinical documentation assistant. Write a medical necessity " +
	"justification for a prior authorization request using only the supplied clinical context. " +
	"Do not invent findings, dates, or history that are not present in the input. " +
	"Respond with a JSON object containing exactly three string fields: " +
	`"medical_necessity", "indications", and "risk_benefit".`

// OpenAIGenerator calls the OpenAI chat completions API.
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

// NewOpenAIGenerator builds a Generator backed by OpenAI.
func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, in Input) (*Output, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(in)),
		},
		Temperature: openai.Float(0.2),
		MaxTokens:   openai.Int(2048),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("chat completion returned no content")
	}

	out, err := parseOutput(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	out.ModelID = g.model
	return out, nil
}

// parseOutput decodes the model's JSON reply. Models occasionally wrap the
// JSON in a markdown code fence, so that is stripped first. A reply that is
// not valid JSON is kept whole as the medical necessity text rather than
// discarded.
func parseOutput(content string) (*Output, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var out Output
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return &Output{MedicalNecessity: strings.TrimSpace(content)}, nil
	}
	if out.MedicalNecessity == "" {
		return nil, fmt.Errorf("generated summary has empty medical necessity text")
	}
	return &out, nil
}

func buildPrompt(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Procedure code: %s\n", in.ProcedureCode)
	if in.Modality != "" {
		fmt.Fprintf(&b, "Modality: %s\n", in.Modality)
	}
	fmt.Fprintf(&b, "Diagnosis: %s\n", in.Diagnosis)
	if in.PayerName != "" {
		fmt.Fprintf(&b, "Payer: %s\n", in.PayerName)
	}

	if len(in.ClinicalNotes) > 0 {
		b.WriteString("\nClinical notes:\n")
		for _, note := range in.ClinicalNotes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
	}

	if len(in.OCRText) > 0 {
		b.WriteString("\nExtracted document text:\n")
		for _, text := range in.OCRText {
			fmt.Fprintf(&b, "---\n%s\n", text)
		}
	}

	if len(in.PolicySnippets) > 0 {
		b.WriteString("\nPayer policy excerpts:\n")
		for _, snippet := range in.PolicySnippets {
			fmt.Fprintf(&b, "---\n%s\n", snippet)
		}
	}

	return b.String()
}

// MockGenerator returns a canned summary. Used in development and tests.
type MockGenerator struct {
	// Err, if set, is returned from every Generate call.
	Err error
}

func (m *MockGenerator) Generate(_ context.Context, in Input) (*Output, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &Output{
		MedicalNecessity: fmt.Sprintf("The requested procedure (%s) is medically necessary for diagnosis %s.", in.ProcedureCode, in.Diagnosis),
		Indications:      fmt.Sprintf("Clinical indications support %s imaging.", in.Modality),
		RiskBenefit:      "Expected diagnostic benefit outweighs procedural risk.",
		ModelID:          "mock",
	}, nil
}
