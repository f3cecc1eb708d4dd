package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/doc-analyzer/internal/analyzer"
	"github.com/sells-group/doc-analyzer/internal/gateway"
	"github.com/sells-group/doc-analyzer/internal/model"
)

// --- Extractor Mock ---

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	args := m.Called(ctx, data)
	return args.String(0), args.Error(1)
}

// --- Gateway Mock ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Complete(ctx context.Context, req gateway.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// --- Document Analyzer Mock ---

type mockDocumentAnalyzer struct {
	mock.Mock
}

func (m *mockDocumentAnalyzer) Analyze(ctx context.Context, text string, provider model.Provider, feedback string) (*analyzer.Result[model.DocumentAnalysis], error) {
	args := m.Called(ctx, text, provider, feedback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analyzer.Result[model.DocumentAnalysis]), args.Error(1)
}

// --- Evaluator Mock ---

type mockEvaluator struct {
	mock.Mock
}

func (m *mockEvaluator) Evaluate(ctx context.Context, a *model.DocumentAnalysis) (*model.EvaluationResult, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EvaluationResult), args.Error(1)
}
