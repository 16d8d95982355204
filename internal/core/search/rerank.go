package search

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Rerank orders candidates by lexical relevance to the query, best first,
// and returns at most limit of them. Scoring combines query-term coverage
// with dampened term frequency; ties keep the incoming order, which encodes
// the retrieval passes' own priority.
func Rerank(query string, candidates []*SearchResult, limit int) []*SearchResult {
	reranked := make([]*SearchResult, len(candidates))
	copy(reranked, candidates)

	for _, c := range reranked {
		c.Score = LexicalScore(query, c.Text)
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	if limit > 0 && len(reranked) > limit {
		reranked = reranked[:limit]
	}
	return reranked
}

// LexicalScore scores a document against a query by term overlap: the
// fraction of distinct query terms present in the document, plus a small
// log-dampened frequency bonus so repeated matches break ties.
func LexicalScore(query, doc string) float64 {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return 0
	}

	docCounts := make(map[string]int)
	for _, t := range tokenize(doc) {
		docCounts[t]++
	}

	seen := make(map[string]bool, len(queryTerms))
	var matched, bonus float64
	for _, t := range queryTerms {
		if seen[t] {
			continue
		}
		seen[t] = true
		if n := docCounts[t]; n > 0 {
			matched++
			bonus += math.Log1p(float64(n))
		}
	}

	distinct := float64(len(seen))
	return matched/distinct + 0.1*bonus/distinct
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
