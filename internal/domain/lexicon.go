package domain

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxDerivedSymbolLen = 10

// SectorLexeme maps a sector name to the keywords that signal it.
type SectorLexeme struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CompanyListing maps a company name to its stock symbol.
type CompanyListing struct {
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
}

// ConfidenceLevels are the configured confidence values per impact source.
type ConfidenceLevels struct {
	Direct       float64 `yaml:"direct"`
	SectorHigh   float64 `yaml:"sector_high"`
	SectorMedium float64 `yaml:"sector_medium"`
	Regulatory   float64 `yaml:"regulatory"`
	Indirect     float64 `yaml:"indirect"`
}

// Lexicon holds the static lookup tables used by the extraction and
// impact stages. It is configuration data, loadable from YAML and
// injectable for testing. Companies and sectors are ordered slices, not
// maps, so that first-match-wins resolution is deterministic.
type Lexicon struct {
	Sectors      []SectorLexeme      `yaml:"sectors"`
	Regulators   []string            `yaml:"regulators"`
	Companies    []CompanyListing    `yaml:"companies"`
	SectorStocks map[string][]string `yaml:"sector_stocks"`
	Confidence   ConfidenceLevels    `yaml:"confidence"`
}

// DefaultLexicon returns the built-in NSE-oriented tables.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Sectors: []SectorLexeme{
			{Name: "Banking", Keywords: []string{"bank", "banking", "credit", "loan", "mortgage"}},
			{Name: "Technology", Keywords: []string{"tech", "software", "ai", "cloud", "digital"}},
			{Name: "Pharmaceutical", Keywords: []string{"pharma", "drug", "medicine", "healthcare"}},
			{Name: "Energy", Keywords: []string{"oil", "gas", "energy", "power", "renewable"}},
			{Name: "Financial Services", Keywords: []string{"finance", "investment", "insurance", "asset management"}},
			{Name: "Automotive", Keywords: []string{"auto", "car", "vehicle", "automotive"}},
			{Name: "Telecommunications", Keywords: []string{"telecom", "mobile", "network", "5g"}},
			{Name: "Retail", Keywords: []string{"retail", "consumer", "e-commerce", "shopping"}},
		},
		Regulators: []string{
			"RBI", "Reserve Bank", "SEBI", "SEC", "Federal Reserve", "Fed",
			"Central Bank", "Monetary Authority", "Financial Authority",
		},
		Companies: []CompanyListing{
			{Name: "HDFC Bank", Symbol: "HDFCBANK"},
			{Name: "ICICI Bank", Symbol: "ICICIBANK"},
			{Name: "State Bank", Symbol: "SBIN"},
			{Name: "Reliance", Symbol: "RELIANCE"},
			{Name: "TCS", Symbol: "TCS"},
			{Name: "Infosys", Symbol: "INFY"},
			{Name: "Wipro", Symbol: "WIPRO"},
			{Name: "Asian Paints", Symbol: "ASIANPAINT"},
			{Name: "ITC", Symbol: "ITC"},
			{Name: "Larsen", Symbol: "LT"},
		},
		SectorStocks: map[string][]string{
			"Banking":            {"HDFCBANK", "ICICIBANK", "SBIN", "AXISBANK", "KOTAKBANK"},
			"Technology":         {"TCS", "INFY", "WIPRO", "TECHM", "HCLTECH"},
			"Pharmaceutical":     {"SUNPHARMA", "DRREDDY", "CIPLA", "DIVISLAB"},
			"Energy":             {"RELIANCE", "ONGC", "BPCL", "IOC"},
			"Financial Services": {"BAJFINANCE", "BAJAJFINSV", "HDFCLIFE", "SBILIFE"},
			"Automotive":         {"MARUTI", "M&M", "TATAMOTORS", "HEROMOTOCO"},
		},
		Confidence: ConfidenceLevels{
			Direct:       1.0,
			SectorHigh:   0.8,
			SectorMedium: 0.6,
			Regulatory:   0.5,
			Indirect:     0.3,
		},
	}
}

// LoadLexicon reads a lexicon from a YAML file. Sections absent from the
// file fall back to the defaults, so a file may override just one table.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}

	lex := DefaultLexicon()
	if err := yaml.Unmarshal(data, lex); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon file: %w", err)
	}
	return lex, nil
}

// ResolveSymbol maps a company name to a stock symbol. Matching is a
// case-insensitive substring check in both directions with first match
// winning; unknown companies fall back to a derived symbol.
func (l *Lexicon) ResolveSymbol(company string) string {
	lower := strings.ToLower(company)
	for _, c := range l.Companies {
		name := strings.ToLower(c.Name)
		if strings.Contains(lower, name) || strings.Contains(name, lower) {
			return c.Symbol
		}
	}
	return DeriveSymbol(company)
}

// MatchEntity reports the first known company, regulator or sector named
// in the text. The read path uses it to recognize entity-focused queries
// and widen retrieval with entity-level lookups.
func (l *Lexicon) MatchEntity(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, c := range l.Companies {
		if strings.Contains(lower, strings.ToLower(c.Name)) {
			return c.Name, true
		}
	}
	for _, r := range l.Regulators {
		if strings.Contains(lower, strings.ToLower(r)) {
			return r, true
		}
	}
	for _, s := range l.Sectors {
		for _, kw := range s.Keywords {
			if strings.Contains(lower, kw) {
				return s.Name, true
			}
		}
	}
	return "", false
}

// DeriveSymbol builds a fallback symbol from a company name: uppercase,
// spaces stripped, truncated to ten characters. Truncation counts runes
// so a non-ASCII name is never cut mid-sequence.
func DeriveSymbol(name string) string {
	s := strings.ToUpper(strings.ReplaceAll(name, " ", ""))
	if runes := []rune(s); len(runes) > maxDerivedSymbolLen {
		s = string(runes[:maxDerivedSymbolLen])
	}
	return s
}
