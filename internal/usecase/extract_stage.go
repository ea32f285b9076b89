package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"news-intel/internal/domain"
)

// Fixed per-strategy confidence levels. The lexicon strategies are cheap
// but coarse; the LLM lists are trusted most, the statistical tagger sits
// in between.
const (
	sectorKeywordConfidence = 0.7
	regulatorLexConfidence  = 0.9
	taggerConfidence        = 0.8

	llmCompanyConfidence   = 0.9
	llmSectorConfidence    = 0.9
	llmRegulatorConfidence = 0.95
	llmPersonConfidence    = 0.85
	llmEventConfidence     = 0.8
)

type regulatorPattern struct {
	name string
	re   *regexp.Regexp
}

// ExtractStage runs three independent extraction strategies over the
// article text and merges their output: lexicon matching, a statistical
// NER tagger, and structured LLM extraction. None of the strategies may
// abort the stage; each degrades to an empty contribution on failure.
type ExtractStage struct {
	tagger     domain.EntityTagger
	extractor  domain.EntityExtractor
	lexicon    *domain.Lexicon
	regulators []regulatorPattern
	logger     *slog.Logger
}

func NewExtractStage(
	tagger domain.EntityTagger,
	extractor domain.EntityExtractor,
	lexicon *domain.Lexicon,
	logger *slog.Logger,
) *ExtractStage {
	// Word-boundary patterns are precompiled once per lexicon.
	patterns := make([]regulatorPattern, 0, len(lexicon.Regulators))
	for _, name := range lexicon.Regulators {
		patterns = append(patterns, regulatorPattern{
			name: name,
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`),
		})
	}
	return &ExtractStage{
		tagger:     tagger,
		extractor:  extractor,
		lexicon:    lexicon,
		regulators: patterns,
		logger:     logger,
	}
}

func (s *ExtractStage) Name() string { return "entity_extraction" }

func (s *ExtractStage) Run(ctx context.Context, state *domain.ProcessingState) {
	if state.Failed() {
		return
	}
	article := state.Article
	if state.IsDuplicate {
		s.logger.InfoContext(ctx, "extraction_skipped_duplicate", slog.String("article_id", article.ID))
		return
	}

	text := article.FullText()

	var entities []domain.Entity
	entities = append(entities, s.extractTagged(ctx, text)...)
	entities = append(entities, s.extractSectors(text)...)
	entities = append(entities, s.extractRegulators(text)...)
	entities = append(entities, s.extractWithLLM(ctx, article)...)

	merged := domain.MergeEntities(entities)
	state.Entities = merged
	state.Metadata[domain.MetaEntityCount] = len(merged)

	s.logger.InfoContext(ctx, "entities_extracted",
		slog.String("article_id", article.ID),
		slog.Int("count", len(merged)),
	)
}

// extractTagged maps ORG and PERSON spans from the statistical tagger to
// entities. Tagger failure contributes nothing.
func (s *ExtractStage) extractTagged(ctx context.Context, text string) []domain.Entity {
	spans, err := s.tagger.Tag(ctx, text)
	if err != nil {
		s.logger.WarnContext(ctx, "ner_tagger_failed", slog.String("error", err.Error()))
		return nil
	}

	var entities []domain.Entity
	for _, span := range spans {
		switch span.Kind {
		case "ORG":
			entities = append(entities, domain.Entity{
				Text: span.Text, Type: domain.EntityCompany, Confidence: taggerConfidence,
			})
		case "PERSON":
			entities = append(entities, domain.Entity{
				Text: span.Text, Type: domain.EntityPerson, Confidence: taggerConfidence,
			})
		}
	}
	return entities
}

// extractSectors emits one SECTOR entity per lexicon sector whose keyword
// list matches the lowercased text.
func (s *ExtractStage) extractSectors(text string) []domain.Entity {
	lower := strings.ToLower(text)

	var entities []domain.Entity
	for _, sector := range s.lexicon.Sectors {
		for _, keyword := range sector.Keywords {
			if strings.Contains(lower, keyword) {
				entities = append(entities, domain.Entity{
					Text: sector.Name, Type: domain.EntitySector, Confidence: sectorKeywordConfidence,
				})
				break
			}
		}
	}
	return entities
}

// extractRegulators matches regulator names on word boundaries,
// case-insensitively.
func (s *ExtractStage) extractRegulators(text string) []domain.Entity {
	var entities []domain.Entity
	for _, p := range s.regulators {
		if p.re.MatchString(text) {
			entities = append(entities, domain.Entity{
				Text: p.name, Type: domain.EntityRegulator, Confidence: regulatorLexConfidence,
			})
		}
	}
	return entities
}

// extractWithLLM maps the extractor's five categorized lists to typed
// entities. An extractor failure is treated as five empty lists.
func (s *ExtractStage) extractWithLLM(ctx context.Context, article domain.Article) []domain.Entity {
	lists, err := s.extractor.Extract(ctx, article.Title, article.Body)
	if err != nil {
		s.logger.WarnContext(ctx, "llm_extraction_failed",
			slog.String("article_id", article.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	var entities []domain.Entity
	appendAll := func(texts []string, typ domain.EntityType, confidence float64) {
		for _, text := range texts {
			entities = append(entities, domain.Entity{Text: text, Type: typ, Confidence: confidence})
		}
	}
	appendAll(lists.Companies, domain.EntityCompany, llmCompanyConfidence)
	appendAll(lists.Sectors, domain.EntitySector, llmSectorConfidence)
	appendAll(lists.Regulators, domain.EntityRegulator, llmRegulatorConfidence)
	appendAll(lists.People, domain.EntityPerson, llmPersonConfidence)
	appendAll(lists.Events, domain.EntityEvent, llmEventConfidence)
	return entities
}
