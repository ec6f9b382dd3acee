package domain

// SearchResult is the outcome of one ranked search.
type SearchResult struct {
	Packages []*Package `json:"packages"`
	Shown    int        `json:"shown"`
	Total    int        `json:"total"`
	Query    string     `json:"query"`
	Limit    int        `json:"limit"`
	Order    OrderField `json:"order"`
}
