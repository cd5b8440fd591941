package domain

// SearchResult is one web search hit.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Field       Tag    `json:"field,omitempty"`
	Aspect      string `json:"aspect,omitempty"`
}

// Passage is a chunk of a reference document matched by a retrieval query.
type Passage struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}
