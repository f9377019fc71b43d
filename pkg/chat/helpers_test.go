package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/recipeu/agent/pkg/llms"
	"github.com/recipeu/agent/pkg/search"
)

// fakeLLM routes completions through a test-provided function and records
// every request it sees.
type fakeLLM struct {
	respond func(req llms.Request) (string, error)
	calls   []llms.Request
}

func (f *fakeLLM) Complete(_ context.Context, req llms.Request) (*llms.Completion, error) {
	f.calls = append(f.calls, req)
	text, err := f.respond(req)
	if err != nil {
		return nil, err
	}
	return &llms.Completion{
		Text:  text,
		Usage: llms.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (f *fakeLLM) ModelName() string { return "fake" }
func (f *fakeLLM) Close() error      { return nil }

// promptContains matches a fake response to the prompt that asked for it.
func promptContains(req llms.Request, marker string) bool {
	return strings.Contains(req.Prompt, marker)
}

type fakeRetriever struct {
	docs []search.Document
	err  error
}

func (f *fakeRetriever) SearchRecipes(_ context.Context, _ string, _ int) ([]search.Document, error) {
	return f.docs, f.err
}

type fakeWebSearch struct {
	docs   []search.Document
	err    error
	called bool
}

func (f *fakeWebSearch) Search(_ context.Context, _ string, _ int) ([]search.Document, error) {
	f.called = true
	return f.docs, f.err
}

// fakeSender records every outbound frame. The progress goroutine and the
// handler write concurrently, so access is locked.
type fakeSender struct {
	mu     sync.Mutex
	frames []any
}

func (f *fakeSender) Send(frame any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeSender) frameTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var types []string
	for _, frame := range f.frames {
		switch fr := frame.(type) {
		case SessionInitializedFrame:
			types = append(types, fr.Type)
		case ThinkingFrame:
			types = append(types, fr.Type)
		case ProgressFrame:
			types = append(types, fr.Type)
		case AgentMessageFrame:
			types = append(types, fr.Type)
		case ChatExternalFrame:
			types = append(types, fr.Type)
		case AllergyWarningFrame:
			types = append(types, fr.Type)
		case ConstraintWarningFrame:
			types = append(types, fr.Type)
		case AllergyDislikeDetectedFrame:
			types = append(types, fr.Type)
		case ErrorFrame:
			types = append(types, fr.Type)
		}
	}
	return types
}

func (f *fakeSender) lastAgentMessage() (AgentMessageFrame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.frames) - 1; i >= 0; i-- {
		if frame, ok := f.frames[i].(AgentMessageFrame); ok {
			return frame, true
		}
	}
	return AgentMessageFrame{}, false
}

type fakeStore struct {
	sessions int64
	messages []string
}

func (f *fakeStore) CreateSession(_ context.Context, _ int64) (int64, error) {
	f.sessions++
	return f.sessions, nil
}

func (f *fakeStore) AddChatMessage(_ context.Context, _, _ int64, role, _, text string) (int64, error) {
	f.messages = append(f.messages, role+": "+text)
	return int64(len(f.messages)), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
