package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/homescout-ai/homescout/pkg/llm"
	"github.com/homescout-ai/homescout/pkg/models"
)

// scriptedLLM returns canned completions in order and records the prompts it
// received.
type scriptedLLM struct {
	responses []string
	errs      []error
	prompts   []string
	calls     int
}

func (s *scriptedLLM) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	idx := s.calls
	s.calls++
	if len(req.Messages) > 0 {
		s.prompts = append(s.prompts, req.Messages[len(req.Messages)-1].Content)
	}
	if idx < len(s.errs) && s.errs[idx] != nil {
		return openai.ChatCompletionResponse{}, s.errs[idx]
	}
	content := "{}"
	if idx < len(s.responses) {
		content = s.responses[idx]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}, nil
}

func newScriptedGateway(responses ...string) (*llm.Gateway, *scriptedLLM) {
	stub := &scriptedLLM{responses: responses}
	return llm.NewGatewayWithClient(stub, "test-model"), stub
}

func newGatewayFromStub(stub *scriptedLLM) *llm.Gateway {
	return llm.NewGatewayWithClient(stub, "test-model")
}

// keyedLLM serves responses by prompt substring, safe for concurrent use.
type keyedLLM struct {
	mu       sync.Mutex
	byPrompt map[string]string
	fallback string
	prompts  []string
}

func (k *keyedLLM) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	prompt := ""
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}
	k.mu.Lock()
	k.prompts = append(k.prompts, prompt)
	k.mu.Unlock()

	content := k.fallback
	for key, resp := range k.byPrompt {
		if strings.Contains(prompt, key) {
			content = resp
			break
		}
	}
	if content == "" {
		return openai.ChatCompletionResponse{}, fmt.Errorf("no scripted response for prompt: %.80s", prompt)
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}, nil
}

// fakeProvider is a scriptable search.Provider.
type fakeProvider struct {
	hits      []models.SearchHit
	searchErr error
	pages     map[string]string
	scrapeErr error
	queries   []string
}

func (f *fakeProvider) Search(ctx context.Context, query string) ([]models.SearchHit, error) {
	f.queries = append(f.queries, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeProvider) ScrapeMarkdown(ctx context.Context, url string) (string, error) {
	if f.scrapeErr != nil {
		return "", f.scrapeErr
	}
	page, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return page, nil
}

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }
