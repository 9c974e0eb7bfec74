package search

import "strings"

// Record is the searchable projection of a thread: the OP text plus all
// reply texts, re-indexed whenever a reply is appended.
type Record struct {
	ID      string `json:"id"`
	Room    string `json:"room"`
	Text    string `json:"text"`
	Created int64  `json:"created"`
}

// Result is a single search hit.
type Result struct {
	ID      string `json:"id"`
	Room    string `json:"room"`
	Snippet string `json:"snippet"`
}

// Response is the payload returned to search callers.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Query describes a search request, always scoped to a single room.
type Query struct {
	Room  string
	Text  string
	Limit int
}

func snippet(text string, maxLen int) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= maxLen {
		return trimmed
	}
	return trimmed[:maxLen]
}
