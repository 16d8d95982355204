package search

// SearchResult is one retrieved candidate: a chunk of a section with its
// relevance score.
type SearchResult struct {
	SectionID string  `json:"sectionId"`
	Ordinal   int     `json:"ordinal"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
}

// RetrieveParams are the tunables of one retrieval pass.
type RetrieveParams struct {
	Query        string
	InitialLimit int // semantic candidates before reranking (default 20)
	FinalLimit   int // results returned after reranking (default 15)
}

// RetrievalResult is the outcome of a hybrid retrieval pass. Notices carry
// user-visible remarks about how the query was interpreted (e.g. an applied
// punishment filter) for the UI to surface.
type RetrievalResult struct {
	Results []*SearchResult `json:"results"`
	Notices []string        `json:"notices,omitempty"`
}
