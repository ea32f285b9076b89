package usecase

import (
	"context"

	"news-intel/internal/domain"
)

// Stage is one step of the fixed four-step processing pipeline. A stage
// mutates the shared state and never returns an error: stage-local
// failures degrade to default behavior and are surfaced through
// state.Error only. The orchestrator calls every stage unconditionally;
// each stage decides internally whether to perform work.
type Stage interface {
	Name() string
	Run(ctx context.Context, state *domain.ProcessingState)
}
