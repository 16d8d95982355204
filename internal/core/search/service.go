package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"ipc-assist/internal/core/corpus"
)

const (
	// DefaultInitialLimit is the semantic candidate count before reranking.
	DefaultInitialLimit = 20
	// DefaultFinalLimit is the result count after reranking.
	DefaultFinalLimit = 15
)

var (
	punishmentFilterPattern = regexp.MustCompile(`(?i)greater than (\d+)\s*(?:years|year)?`)
	querySectionPattern     = regexp.MustCompile(`(?i)IPC\s*(\d+[A-Z]*)`)
)

// keywordTriggers maps query terms to a corpus-wide keyword scan. A query
// mentioning either term pulls in every section mentioning either term.
var keywordTriggers = []string{"child", "minor"}

// Service implements hybrid retrieval over the IPC corpus: a punishment
// filter, keyword and exact-section passes over the in-memory sections, a
// semantic pass over the vector index, then lexical reranking of the merged
// candidates.
type Service struct {
	sections     []corpus.Section
	repo         Repository
	embedder     Embedder
	initialLimit int
	finalLimit   int
	logger       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSearchLogger sets the logger for the Service.
func WithSearchLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLimits overrides the default candidate and result counts. Zero keeps
// the current value.
func WithLimits(initial, final int) ServiceOption {
	return func(s *Service) {
		if initial > 0 {
			s.initialLimit = initial
		}
		if final > 0 {
			s.finalLimit = final
		}
	}
}

// NewService creates a new retrieval Service.
func NewService(sections []corpus.Section, repo Repository, embedder Embedder, opts ...ServiceOption) *Service {
	s := &Service{
		sections:     sections,
		repo:         repo,
		embedder:     embedder,
		initialLimit: DefaultInitialLimit,
		finalLimit:   DefaultFinalLimit,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Retrieve runs the hybrid pipeline and returns the reranked top results.
func (s *Service) Retrieve(ctx context.Context, params RetrieveParams) (*RetrievalResult, error) {
	if params.Query == "" {
		return nil, fmt.Errorf("query is required")
	}

	initialLimit := params.InitialLimit
	if initialLimit <= 0 {
		initialLimit = s.initialLimit
	}
	finalLimit := params.FinalLimit
	if finalLimit <= 0 {
		finalLimit = s.finalLimit
	}

	var notices []string

	// A "greater than N years" query switches to the punishment filter: only
	// sections whose parsed term exceeds the threshold are candidates.
	if minYears, ok := punishmentThreshold(params.Query); ok {
		notices = append(notices, fmt.Sprintf("Applying numerical filter: punishment greater than %d years.", minYears))

		filtered := s.filterByPunishment(minYears)
		if len(filtered) > 0 {
			s.logger.Info("punishment filter applied", "minYears", minYears, "candidates", len(filtered))
			return &RetrievalResult{
				Results: Rerank(params.Query, filtered, initialLimit),
				Notices: notices,
			}, nil
		}

		notices = append(notices, "Numerical filter found no matching sections; falling back to general search.")
		s.logger.Warn("punishment filter matched nothing, falling back", "minYears", minYears)
	}

	keywordMatches := s.keywordPass(params.Query)
	exactMatches := s.exactSectionPass(params.Query)

	semanticMatches, err := s.semanticPass(ctx, params.Query, initialLimit)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}

	merged := dedupe(keywordMatches, exactMatches, semanticMatches)
	if len(merged) == 0 {
		return &RetrievalResult{Notices: notices}, nil
	}

	s.logger.Info("hybrid retrieval merged candidates",
		"keyword", len(keywordMatches),
		"exact", len(exactMatches),
		"semantic", len(semanticMatches),
		"merged", len(merged),
	)

	return &RetrievalResult{
		Results: Rerank(params.Query, merged, finalLimit),
		Notices: notices,
	}, nil
}

func (s *Service) filterByPunishment(minYears int) []*SearchResult {
	var results []*SearchResult
	for _, section := range s.sections {
		if section.Punishment.ExceedsYears(minYears) {
			results = append(results, sectionResult(section))
		}
	}
	return results
}

func (s *Service) keywordPass(query string) []*SearchResult {
	lower := strings.ToLower(query)
	triggered := false
	for _, kw := range keywordTriggers {
		if strings.Contains(lower, kw) {
			triggered = true
			break
		}
	}
	if !triggered {
		return nil
	}

	var results []*SearchResult
	for _, section := range s.sections {
		text := strings.ToLower(section.Text)
		for _, kw := range keywordTriggers {
			if strings.Contains(text, kw) {
				results = append(results, sectionResult(section))
				break
			}
		}
	}
	return results
}

func (s *Service) exactSectionPass(query string) []*SearchResult {
	m := querySectionPattern.FindStringSubmatch(query)
	if m == nil {
		return nil
	}
	wanted := "IPC " + strings.ToUpper(m[1])

	for _, section := range s.sections {
		if normalizeSectionID(section.ID) == wanted {
			return []*SearchResult{sectionResult(section)}
		}
	}
	return nil
}

func (s *Service) semanticPass(ctx context.Context, query string, limit int) ([]*SearchResult, error) {
	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.repo.SearchByVector(ctx, queryVector, limit)
}

// dedupe merges the passes in priority order, keeping the first occurrence
// of each text.
func dedupe(passes ...[]*SearchResult) []*SearchResult {
	var merged []*SearchResult
	seen := make(map[string]bool)
	for _, pass := range passes {
		for _, r := range pass {
			if seen[r.Text] {
				continue
			}
			seen[r.Text] = true
			merged = append(merged, r)
		}
	}
	return merged
}

func sectionResult(section corpus.Section) *SearchResult {
	return &SearchResult{
		SectionID: section.ID,
		Ordinal:   0,
		Text:      section.Text,
	}
}

// normalizeSectionID collapses "IPC302" and "IPC 302" to "IPC 302".
func normalizeSectionID(id string) string {
	m := querySectionPattern.FindStringSubmatch(id)
	if m == nil {
		return strings.ToUpper(id)
	}
	return "IPC " + strings.ToUpper(m[1])
}

func punishmentThreshold(query string) (int, bool) {
	m := punishmentFilterPattern.FindStringSubmatch(query)
	if m == nil {
		return 0, false
	}
	years, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return years, true
}
