package domain_test

import (
	"testing"
	"time"

	"news-intel/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validArticle() domain.Article {
	return domain.Article{
		ID:          "art-1",
		Title:       "HDFC Bank reports profit",
		Body:        "Quarterly results beat expectations.",
		Source:      "MoneyWire",
		PublishedAt: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
	}
}

func TestArticleValidate(t *testing.T) {
	assert.NoError(t, validArticle().Validate())

	tests := []struct {
		name   string
		mutate func(*domain.Article)
		field  string
	}{
		{"missing id", func(a *domain.Article) { a.ID = "" }, "article_id"},
		{"missing title", func(a *domain.Article) { a.Title = "" }, "title"},
		{"missing body", func(a *domain.Article) { a.Body = "" }, "body"},
		{"missing source", func(a *domain.Article) { a.Source = "" }, "source"},
		{"zero published_at", func(a *domain.Article) { a.PublishedAt = time.Time{} }, "published_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validArticle()
			tt.mutate(&a)
			err := a.Validate()
			require.Error(t, err)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestArticleFullText(t *testing.T) {
	a := validArticle()
	assert.Equal(t, a.Title+"\n\n"+a.Body, a.FullText())
}

func TestProcessingState_FirstErrorWins(t *testing.T) {
	state := domain.NewProcessingState(validArticle())
	assert.False(t, state.Failed())

	state.Fail(assert.AnError)
	first := state.Error
	state.Fail(&domain.ValidationError{Field: "x", Reason: "y"})

	assert.True(t, state.Failed())
	assert.Equal(t, first, state.Error)
}
