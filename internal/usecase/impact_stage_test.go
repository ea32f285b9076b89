package usecase_test

import (
	"context"
	"errors"
	"testing"

	"news-intel/internal/domain"
	"news-intel/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func findImpact(impacts []domain.StockImpact, symbol string) (domain.StockImpact, bool) {
	for _, imp := range impacts {
		if imp.Symbol == symbol {
			return imp, true
		}
	}
	return domain.StockImpact{}, false
}

func TestImpactStage_DirectImpactFromCompanyEntity(t *testing.T) {
	analyst := new(MockImpactAnalyst)
	stage := usecase.NewImpactStage(analyst, domain.DefaultLexicon(), testLogger())

	analyst.On("Infer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.StockImpact{}, nil)

	state := domain.NewProcessingState(newsArticle("N1"))
	state.Entities = []domain.Entity{
		{Text: "HDFC Bank", Type: domain.EntityCompany, Confidence: 0.9},
	}
	stage.Run(context.Background(), state)

	imp, ok := findImpact(state.StockImpacts, "HDFCBANK")
	require.True(t, ok)
	assert.Equal(t, domain.ImpactDirect, imp.Kind)
	assert.Equal(t, 1.0, imp.Confidence)
	assert.Contains(t, imp.Reasoning, "HDFC Bank")
}

func TestImpactStage_UnknownCompanyGetsDerivedSymbol(t *testing.T) {
	analyst := new(MockImpactAnalyst)
	stage := usecase.NewImpactStage(analyst, domain.DefaultLexicon(), testLogger())

	analyst.On("Infer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.StockImpact{}, nil)

	state := domain.NewProcessingState(newsArticle("N1"))
	state.Entities = []domain.Entity{
		{Text: "Acme Widgets Corp", Type: domain.EntityCompany, Confidence: 0.9},
	}
	stage.Run(context.Background(), state)

	_, ok := findImpact(state.StockImpacts, "ACMEWIDGET")
	assert.True(t, ok)
}

func TestImpactStage_SectorFanOut(t *testing.T) {
	analyst := new(MockImpactAnalyst)
	stage := usecase.NewImpactStage(analyst, domain.DefaultLexicon(), testLogger())

	analyst.On("Infer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.StockImpact{}, nil)

	state := domain.NewProcessingState(newsArticle("N1"))
	state.Entities = []domain.Entity{
		{Text: "Banking", Type: domain.EntitySector, Confidence: 0.7},
	}
	stage.Run(context.Background(), state)

	// One impact per listed Banking stock at the sector_high level.
	assert.Len(t, state.StockImpacts, 5)
	imp, ok := findImpact(state.StockImpacts, "AXISBANK")
	require.True(t, ok)
	assert.Equal(t, domain.ImpactSector, imp.Kind)
	assert.Equal(t, 0.8, imp.Confidence)
}

func TestImpactStage_RegulatoryRequiresRegulatorEntity(t *testing.T) {
	analyst := new(MockImpactAnalyst)
	lex := domain.DefaultLexicon()
	stage := usecase.NewImpactStage(analyst, lex, testLogger())

	analyst.On("Infer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.StockImpact{}, nil)

	// Without a REGULATOR entity, sector entities yield only sector
	// impacts (0.8), never regulatory ones.
	state := domain.NewProcessingState(newsArticle("N1"))
	state.Entities = []domain.Entity{
		{Text: "Banking", Type: domain.EntitySector, Confidence: 0.7},
	}
	stage.Run(context.Background(), state)
	for _, imp := range state.StockImpacts {
		assert.NotEqual(t, domain.ImpactRegulatory, imp.Kind)
	}

	// With one, the same sector symbols still merge to the higher-
	// confidence sector record, but the reasoning path was exercised:
	// lower the sector_high level to surface the regulatory records.
	lex.Confidence.SectorHigh = 0.4
	state = domain.NewProcessingState(newsArticle("N1"))
	state.Entities = []domain.Entity{
		{Text: "RBI", Type: domain.EntityRegulator, Confidence: 0.9},
		{Text: "Banking", Type: domain.EntitySector, Confidence: 0.7},
	}
	stage.Run(context.Background(), state)

	imp, ok := findImpact(state.StockImpacts, "HDFCBANK")
	require.True(t, ok)
	assert.Equal(t, domain.ImpactRegulatory, imp.Kind)
	assert.Equal(t, 0.5, imp.Confidence)
	assert.Contains(t, imp.Reasoning, "RBI")
}

func TestImpactStage_AnalystReceivesCategorizedEntities(t *testing.T) {
	analyst := new(MockImpactAnalyst)
	stage := usecase.NewImpactStage(analyst, domain.DefaultLexicon(), testLogger())

	article := newsArticle("N1")
	expected := domain.EntityLists{
		Companies:  []string{"HDFC Bank"},
		Sectors:    []string{"Banking"},
		Regulators: []string{"RBI"},
		Events:     []string{"rate decision"},
	}
	analyst.On("Infer", mock.Anything, article.Title, article.Body, expected).
		Return([]domain.StockImpact{
			{Symbol: "KOTAKBANK", Confidence: 0.3, Kind: domain.ImpactIndirect, Reasoning: "peer effect"},
		}, nil)

	state := domain.NewProcessingState(article)
	state.Entities = []domain.Entity{
		{Text: "HDFC Bank", Type: domain.EntityCompany, Confidence: 0.9},
		{Text: "Banking", Type: domain.EntitySector, Confidence: 0.7},
		{Text: "RBI", Type: domain.EntityRegulator, Confidence: 0.95},
		{Text: "rate decision", Type: domain.EntityEvent, Confidence: 0.8},
	}
	stage.Run(context.Background(), state)

	analyst.AssertExpectations(t)
	imp, ok := findImpact(state.StockImpacts, "KOTAKBANK")
	require.True(t, ok)
	// Sector fan-out already produced KOTAKBANK at 0.8; the analyst's
	// 0.3 record must not replace it.
	assert.Equal(t, 0.8, imp.Confidence)
	assert.Equal(t, domain.ImpactSector, imp.Kind)
}

func TestImpactStage_AnalystFailureIsNotAPipelineError(t *testing.T) {
	analyst := new(MockImpactAnalyst)
	stage := usecase.NewImpactStage(analyst, domain.DefaultLexicon(), testLogger())

	analyst.On("Infer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("reasoning timeout"))

	state := domain.NewProcessingState(newsArticle("N1"))
	state.Entities = []domain.Entity{
		{Text: "TCS", Type: domain.EntityCompany, Confidence: 0.9},
	}
	stage.Run(context.Background(), state)

	assert.False(t, state.Failed())
	_, ok := findImpact(state.StockImpacts, "TCS")
	assert.True(t, ok)
}

func TestImpactStage_SkipsDuplicates(t *testing.T) {
	analyst := new(MockImpactAnalyst)
	stage := usecase.NewImpactStage(analyst, domain.DefaultLexicon(), testLogger())

	state := domain.NewProcessingState(newsArticle("N2"))
	state.IsDuplicate = true

	stage.Run(context.Background(), state)

	assert.Empty(t, state.StockImpacts)
	analyst.AssertNotCalled(t, "Infer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
