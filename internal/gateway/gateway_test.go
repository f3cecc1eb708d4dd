package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/doc-analyzer/internal/config"
	"github.com/sells-group/doc-analyzer/internal/model"
	"github.com/sells-group/doc-analyzer/pkg/anthropic"
	"github.com/sells-group/doc-analyzer/pkg/openai"
)

type mockOpenAI struct {
	mock.Mock
}

func (m *mockOpenAI) ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openai.ChatCompletionResponse), args.Error(1)
}

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.OpenAI.Model = "gpt-4o"
	cfg.OpenAI.MaxTokens = 4000
	cfg.Anthropic.Model = "claude-3-haiku-20240307"
	cfg.Anthropic.MaxTokens = 1000
	cfg.LLM.TimeoutSecs = 5
	cfg.Pricing.Models = map[string]config.ModelPricing{
		"gpt-4o": {Input: 2.50, Output: 10.00},
	}
	return cfg
}

func openaiReply(text string) *openai.ChatCompletionResponse {
	return &openai.ChatCompletionResponse{
		Choices: []openai.Choice{{Message: openai.Message{Role: "assistant", Content: text}}},
		Usage:   openai.Usage{PromptTokens: 100, CompletionTokens: 20},
	}
}

func TestComplete_OpenAI(t *testing.T) {
	oa := new(mockOpenAI)
	oa.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "gpt-4o" &&
			req.MaxTokens == 4000 &&
			len(req.Messages) == 2 &&
			req.Messages[0].Role == "system" && req.Messages[0].Content == "persona" &&
			req.Messages[1].Role == "user" && req.Messages[1].Content == "prompt"
	})).Return(openaiReply("  {\"ok\":true}\n"), nil)

	r := New(testConfig(), oa, nil, nil)
	text, err := r.Complete(context.Background(), Request{
		Provider: model.ProviderOpenAI,
		System:   "persona",
		Prompt:   "prompt",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)
	oa.AssertExpectations(t)
}

func TestComplete_Anthropic(t *testing.T) {
	an := new(mockAnthropic)
	an.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-3-haiku-20240307" &&
			req.MaxTokens == 1000 &&
			req.System == "persona" &&
			len(req.Messages) == 1 && req.Messages[0].Content == "prompt"
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "reply"}},
		Usage:   anthropic.TokenUsage{InputTokens: 10, OutputTokens: 2},
	}, nil)

	r := New(testConfig(), new(mockOpenAI), an, nil)
	text, err := r.Complete(context.Background(), Request{
		Provider: model.ProviderAnthropic,
		System:   "persona",
		Prompt:   "prompt",
	})
	require.NoError(t, err)
	assert.Equal(t, "reply", text)
	an.AssertExpectations(t)
}

func TestComplete_ExplicitModel(t *testing.T) {
	oa := new(mockOpenAI)
	oa.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "gpt-4o-mini"
	})).Return(openaiReply("x"), nil)

	r := New(testConfig(), oa, nil, nil)
	_, err := r.Complete(context.Background(), Request{Provider: model.ProviderOpenAI, Model: "gpt-4o-mini", Prompt: "p"})
	require.NoError(t, err)
	oa.AssertExpectations(t)
}

func TestComplete_ProviderFailure(t *testing.T) {
	oa := new(mockOpenAI)
	cause := errors.New("dial tcp: connection refused")
	oa.On("ChatCompletion", mock.Anything, mock.Anything).Return(nil, cause)

	r := New(testConfig(), oa, nil, nil)
	_, err := r.Complete(context.Background(), Request{Provider: model.ProviderOpenAI, Prompt: "p"})
	require.Error(t, err)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, model.ProviderOpenAI, pe.Provider)
	assert.Equal(t, 0, pe.StatusCode)
	assert.True(t, pe.Transient)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "openai provider call failed")
}

func TestComplete_AnthropicNotConfigured(t *testing.T) {
	r := New(testConfig(), new(mockOpenAI), nil, nil)
	_, err := r.Complete(context.Background(), Request{Provider: model.ProviderAnthropic, Prompt: "p"})

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, model.ProviderAnthropic, pe.Provider)
	assert.False(t, pe.Transient)
	assert.Contains(t, err.Error(), "anthropic API key not configured")
}

func TestComplete_UnknownProvider(t *testing.T) {
	r := New(testConfig(), new(mockOpenAI), new(mockAnthropic), nil)
	_, err := r.Complete(context.Background(), Request{Provider: "gemini", Prompt: "p"})

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, model.Provider("gemini"), pe.Provider)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestComplete_Timeout(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.TimeoutSecs = 1

	oa := new(mockOpenAI)
	oa.On("ChatCompletion", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, context.DeadlineExceeded)

	r := New(cfg, oa, nil, nil)
	start := time.Now()
	_, err := r.Complete(context.Background(), Request{Provider: model.ProviderOpenAI, Prompt: "p"})
	assert.Less(t, time.Since(start), 3*time.Second)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.Transient)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")
}

func TestComplete_CallerDeadline(t *testing.T) {
	oa := new(mockOpenAI)
	oa.On("ChatCompletion", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, context.DeadlineExceeded)

	r := New(testConfig(), oa, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Complete(ctx, Request{Provider: model.ProviderOpenAI, Prompt: "p"})

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "aborted by caller")
	assert.NotContains(t, err.Error(), "timed out after")
}

func TestModel(t *testing.T) {
	r := New(testConfig(), nil, nil, nil)
	assert.Equal(t, "gpt-4o", r.Model(model.ProviderOpenAI))
	assert.Equal(t, "claude-3-haiku-20240307", r.Model(model.ProviderAnthropic))
}

func TestNewFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.OpenAI.Key = "sk-test"

	r := NewFromConfig(cfg)
	assert.NotNil(t, r.openai)
	assert.Nil(t, r.anthropic, "anthropic client requires a key")

	cfg.Anthropic.Key = "sk-ant"
	r = NewFromConfig(cfg)
	assert.NotNil(t, r.anthropic)
}

func TestProviderError_Message(t *testing.T) {
	err := &ProviderError{Provider: model.ProviderAnthropic, StatusCode: 529, Err: errors.New("overloaded")}
	assert.Equal(t, "anthropic provider call failed (HTTP 529): overloaded", err.Error())
}
