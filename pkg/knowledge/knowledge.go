// Package knowledge retrieves and ranks context documents for a chat
// query. Two backing implementations exist with the same contract: a
// direct object-storage resolver and a remote training-service client.
// Callers depend only on the Resolver interface.
package knowledge

import (
	"context"
	"time"
)

type Source struct {
	Name     string    `json:"name"`
	URL      string    `json:"url,omitempty"`
	Size     int64     `json:"size,omitempty"`
	Modified time.Time `json:"modified,omitempty"`
	Score    int       `json:"score"`
}

type Result struct {
	Found     bool     `json:"found"`
	Content   string   `json:"content,omitempty"`
	Sources   []Source `json:"sources,omitempty"`
	FileCount int      `json:"fileCount,omitempty"`
	Message   string   `json:"message,omitempty"`
}

type Resolver interface {
	// Query retrieves relevant knowledge for a free-text query within
	// the given agent scope. A nil error with Found=false means nothing
	// relevant exists; infrastructure failures return an error.
	Query(ctx context.Context, query, scope string, maxResults int) (*Result, error)
}
