package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"news-intel/internal/domain"
)

// ImpactStage maps the extracted entities to stock impacts from four
// sources applied unconditionally and then merged: direct company
// mentions, sector membership, regulatory pressure on matched sectors,
// and an external reasoning capability.
type ImpactStage struct {
	analyst domain.ImpactAnalyst
	lexicon *domain.Lexicon
	logger  *slog.Logger
}

func NewImpactStage(analyst domain.ImpactAnalyst, lexicon *domain.Lexicon, logger *slog.Logger) *ImpactStage {
	return &ImpactStage{
		analyst: analyst,
		lexicon: lexicon,
		logger:  logger,
	}
}

func (s *ImpactStage) Name() string { return "impact_analysis" }

func (s *ImpactStage) Run(ctx context.Context, state *domain.ProcessingState) {
	if state.Failed() {
		return
	}
	article := state.Article
	if state.IsDuplicate {
		s.logger.InfoContext(ctx, "impact_analysis_skipped_duplicate", slog.String("article_id", article.ID))
		return
	}

	var impacts []domain.StockImpact
	impacts = append(impacts, s.directImpacts(state.Entities)...)
	impacts = append(impacts, s.sectorImpacts(state.Entities)...)
	impacts = append(impacts, s.regulatoryImpacts(state.Entities)...)
	impacts = append(impacts, s.reasonedImpacts(ctx, article, state.Entities)...)

	merged := domain.MergeImpacts(impacts)
	state.StockImpacts = merged
	state.Metadata[domain.MetaImpactCount] = len(merged)

	s.logger.InfoContext(ctx, "impacts_identified",
		slog.String("article_id", article.ID),
		slog.Int("count", len(merged)),
	)
}

// directImpacts emits one impact per COMPANY entity at the "direct"
// confidence level.
func (s *ImpactStage) directImpacts(entities []domain.Entity) []domain.StockImpact {
	var impacts []domain.StockImpact
	for _, e := range entities {
		if e.Type != domain.EntityCompany {
			continue
		}
		impacts = append(impacts, domain.StockImpact{
			Symbol:     s.lexicon.ResolveSymbol(e.Text),
			Confidence: s.lexicon.Confidence.Direct,
			Kind:       domain.ImpactDirect,
			Reasoning:  fmt.Sprintf("Company '%s' directly mentioned", e.Text),
		})
	}
	return impacts
}

// sectorImpacts emits one impact per listed stock of every SECTOR entity
// found in the sector table.
func (s *ImpactStage) sectorImpacts(entities []domain.Entity) []domain.StockImpact {
	var impacts []domain.StockImpact
	for _, e := range entities {
		if e.Type != domain.EntitySector {
			continue
		}
		for _, symbol := range s.lexicon.SectorStocks[e.Text] {
			impacts = append(impacts, domain.StockImpact{
				Symbol:     symbol,
				Confidence: s.lexicon.Confidence.SectorHigh,
				Kind:       domain.ImpactSector,
				Reasoning:  fmt.Sprintf("Sector '%s' impacted", e.Text),
			})
		}
	}
	return impacts
}

// regulatoryImpacts applies only when at least one REGULATOR entity
// exists; matched sectors then carry a regulatory impact naming the first
// regulator found.
func (s *ImpactStage) regulatoryImpacts(entities []domain.Entity) []domain.StockImpact {
	var regulator string
	for _, e := range entities {
		if e.Type == domain.EntityRegulator {
			regulator = e.Text
			break
		}
	}
	if regulator == "" {
		return nil
	}

	var impacts []domain.StockImpact
	for _, e := range entities {
		if e.Type != domain.EntitySector {
			continue
		}
		for _, symbol := range s.lexicon.SectorStocks[e.Text] {
			impacts = append(impacts, domain.StockImpact{
				Symbol:     symbol,
				Confidence: s.lexicon.Confidence.Regulatory,
				Kind:       domain.ImpactRegulatory,
				Reasoning:  fmt.Sprintf("Regulatory action by %s affecting %s", regulator, e.Text),
			})
		}
	}
	return impacts
}

// reasonedImpacts asks the external reasoning capability for additional
// impacts. A failure contributes nothing and never sets state.Error.
func (s *ImpactStage) reasonedImpacts(ctx context.Context, article domain.Article, entities []domain.Entity) []domain.StockImpact {
	lists := categorize(entities)
	impacts, err := s.analyst.Infer(ctx, article.Title, article.Body, lists)
	if err != nil {
		s.logger.WarnContext(ctx, "llm_impact_analysis_failed",
			slog.String("article_id", article.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return impacts
}

// categorize splits entities into the per-type text lists the analyst
// prompt expects.
func categorize(entities []domain.Entity) domain.EntityLists {
	var lists domain.EntityLists
	for _, e := range entities {
		switch e.Type {
		case domain.EntityCompany:
			lists.Companies = append(lists.Companies, e.Text)
		case domain.EntitySector:
			lists.Sectors = append(lists.Sectors, e.Text)
		case domain.EntityRegulator:
			lists.Regulators = append(lists.Regulators, e.Text)
		case domain.EntityPerson:
			lists.People = append(lists.People, e.Text)
		case domain.EntityEvent:
			lists.Events = append(lists.Events, e.Text)
		}
	}
	return lists
}
