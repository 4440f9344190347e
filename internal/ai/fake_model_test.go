package ai

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

type fakeModel struct {
	responses []*genai.GenerateContentResponse
	err       error
	calls     [][]*genai.Content
	configs   []*genai.GenerateContentConfig
}

func (f *fakeModel) GenerateContent(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	snapshot := make([]*genai.Content, len(contents))
	copy(snapshot, contents)
	f.calls = append(f.calls, snapshot)
	f.configs = append(f.configs, config)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.calls) > len(f.responses) {
		return nil, errors.New("unexpected model call")
	}
	return f.responses[len(f.calls)-1], nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
	}}}
}

func callResponse(calls ...*genai.FunctionCall) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, &genai.Part{FunctionCall: c})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: parts},
	}}}
}
