package domain

import (
	"fmt"
	"time"
)

// EntityType categorizes an extracted entity.
type EntityType string

const (
	EntityCompany   EntityType = "COMPANY"
	EntitySector    EntityType = "SECTOR"
	EntityRegulator EntityType = "REGULATOR"
	EntityPerson    EntityType = "PERSON"
	EntityEvent     EntityType = "EVENT"
)

// ImpactKind describes the causal relation between an article and a stock.
type ImpactKind string

const (
	ImpactDirect     ImpactKind = "direct"
	ImpactSector     ImpactKind = "sector"
	ImpactRegulatory ImpactKind = "regulatory"
	ImpactIndirect   ImpactKind = "indirect"
)

// Article is the immutable input to the processing pipeline.
// Identity is ID, assumed globally unique per submission.
type Article struct {
	ID          string
	Title       string
	Body        string
	Source      string
	PublishedAt time.Time
	URL         string
}

// FullText returns the combined title and body used for embedding and
// entity extraction.
func (a Article) FullText() string {
	return a.Title + "\n\n" + a.Body
}

// Validate checks required fields. A failing article is rejected before
// any ProcessingState is constructed.
func (a Article) Validate() error {
	switch {
	case a.ID == "":
		return &ValidationError{Field: "article_id", Reason: "must not be empty"}
	case a.Title == "":
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	case a.Body == "":
		return &ValidationError{Field: "body", Reason: "must not be empty"}
	case a.Source == "":
		return &ValidationError{Field: "source", Reason: "must not be empty"}
	case a.PublishedAt.IsZero():
		return &ValidationError{Field: "published_at", Reason: "must be set"}
	}
	return nil
}

// ValidationError reports a malformed article.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid article: %s %s", e.Field, e.Reason)
}

// Entity is a typed span of text extracted from an article.
type Entity struct {
	Text       string
	Type       EntityType
	Confidence float64
}

// StockImpact is an inferred effect of an article on a stock symbol.
type StockImpact struct {
	Symbol     string
	Confidence float64
	Kind       ImpactKind
	Reasoning  string
}

// Metadata keys recorded by the pipeline stages.
const (
	MetaDuplicateSimilarity = "duplicate_similarity"
	MetaEntityCount         = "entity_count"
	MetaImpactCount         = "impact_count"
	MetaStored              = "stored"
)

// ProcessingState is the value threaded through the four pipeline stages.
// It is created fresh per submitted article and discarded after the final
// result is returned; only the persistence store and similarity index
// outlive it.
type ProcessingState struct {
	Article      Article
	IsDuplicate  bool
	DuplicateOf  string
	Entities     []Entity
	StockImpacts []StockImpact
	Metadata     map[string]any
	Error        string
}

// NewProcessingState builds the initial state for an article.
func NewProcessingState(article Article) *ProcessingState {
	return &ProcessingState{
		Article:  article,
		Metadata: map[string]any{},
	}
}

// Fail records a stage failure. The first error wins; later stages treat
// a failed state as pass-through.
func (s *ProcessingState) Fail(err error) {
	if s.Error == "" {
		s.Error = err.Error()
	}
}

// Failed reports whether any stage has recorded an error.
func (s *ProcessingState) Failed() bool {
	return s.Error != ""
}
