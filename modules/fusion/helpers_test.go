package fusion

import (
	"context"
	"sync"

	"google.golang.org/genai"

	"face-fusion-server/modules/common/model"
)

type generateCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

// fakeGenerator records every request and answers with generateFunc.
type fakeGenerator struct {
	mu           sync.Mutex
	calls        []generateCall
	generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, generateCall{model: model, contents: contents, config: config})
	f.mu.Unlock()
	if f.generateFunc == nil {
		return &genai.GenerateContentResponse{}, nil
	}
	return f.generateFunc(ctx, model, contents, config)
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGenerator) lastParts() []*genai.Part {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 || len(f.calls[len(f.calls)-1].contents) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1].contents[0].Parts
}

func respondWith(resp *genai.GenerateContentResponse) func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return resp, nil
	}
}

func candidateResponse(reason genai.FinishReason, parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: reason,
			Content:      &genai.Content{Role: "model", Parts: parts},
		}},
	}
}

func record(tag byte, mime string, w, h int) *model.ImageRecord {
	return &model.ImageRecord{Data: []byte{tag, tag, tag}, MIMEType: mime, Width: w, Height: h}
}

func imageParts(parts []*genai.Part) []*genai.Part {
	var out []*genai.Part
	for _, p := range parts {
		if p.InlineData != nil {
			out = append(out, p)
		}
	}
	return out
}
