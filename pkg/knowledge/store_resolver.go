package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/maarifa-ai/maarifa/pkg/objectstore"
	"github.com/maarifa-ai/maarifa/pkg/xlog"
)

const (
	contentCacheTTL = 30 * time.Minute
	minTermLength   = 3
)

// indicatorTerms mark documents that are generically useful context
// regardless of the query wording. This is a filename heuristic, not
// semantic search.
var indicatorTerms = []string{"resume", "cv", "profile", "bio", "about", "portfolio"}

// filename bonus table for ranking
var bonusTerms = map[string]int{
	"resume":  5,
	"cv":      5,
	"profile": 3,
	"bio":     3,
}

type cacheEntry struct {
	content string
	fetched time.Time
}

// ObjectStore is the slice of the storage client the resolver needs.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]objectstore.Object, error)
	Get(ctx context.Context, key string) ([]byte, error)
	PublicURL(key string) string
}

// StoreResolver searches documents in the object store under the
// scope's prefix, ranks them by filename relevance, and extracts their
// text. Extracted content is cached in-process with a fixed TTL; the
// cache has no size bound beyond TTL expiry, which is acceptable at
// the target scale.
type StoreResolver struct {
	store ObjectStore

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

func NewStoreResolver(store ObjectStore) *StoreResolver {
	return &StoreResolver{
		store: store,
		cache: map[string]cacheEntry{},
	}
}

func (r *StoreResolver) Query(ctx context.Context, query, scope string, maxResults int) (*Result, error) {
	if maxResults <= 0 {
		maxResults = 3
	}

	objects, err := r.store.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("listing knowledge documents: %w", err)
	}
	if len(objects) == 0 {
		return &Result{Found: false, Message: "no documents uploaded for this agent"}, nil
	}

	terms := queryTerms(query)
	type scored struct {
		obj   objectstore.Object
		score int
	}
	var candidates []scored
	for _, obj := range objects {
		name := strings.ToLower(path.Base(obj.Key))
		if !isCandidate(name, terms) {
			continue
		}
		candidates = append(candidates, scored{obj: obj, score: Score(name, query)})
	}
	if len(candidates) == 0 {
		return &Result{Found: false, Message: "no documents matched the query"}, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].obj.Size != candidates[j].obj.Size {
			return candidates[i].obj.Size > candidates[j].obj.Size
		}
		return candidates[i].obj.LastModified.After(candidates[j].obj.LastModified)
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	var blocks []string
	var sources []Source
	for _, c := range candidates {
		content, err := r.contentFor(ctx, c.obj)
		if err != nil {
			xlog.Warn("Skipping unreadable knowledge document", "key", c.obj.Key, "error", err)
			continue
		}
		name := path.Base(c.obj.Key)
		blocks = append(blocks, fmt.Sprintf("--- Document: %s ---\n%s", name, content))
		sources = append(sources, Source{
			Name:     name,
			URL:      r.store.PublicURL(c.obj.Key),
			Size:     c.obj.Size,
			Modified: c.obj.LastModified,
			Score:    c.score,
		})
	}
	if len(blocks) == 0 {
		return &Result{Found: false, Message: "matching documents could not be read"}, nil
	}

	return &Result{
		Found:     true,
		Content:   strings.Join(blocks, "\n\n"),
		Sources:   sources,
		FileCount: len(sources),
	}, nil
}

// Score computes the filename relevance of a document for a query.
// Exported for the ranking tests.
func Score(lowerName, query string) int {
	score := 0
	q := strings.ToLower(strings.TrimSpace(query))
	if q != "" && strings.Contains(lowerName, q) {
		score += 10
	}
	for _, t := range queryTerms(query) {
		if strings.Contains(lowerName, t) {
			score += 3
		}
	}
	for term, bonus := range bonusTerms {
		if strings.Contains(lowerName, term) {
			score += bonus
		}
	}
	return score
}

func queryTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(f) >= minTermLength {
			terms = append(terms, f)
		}
	}
	return terms
}

func isCandidate(lowerName string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(lowerName, t) {
			return true
		}
	}
	for _, t := range indicatorTerms {
		if strings.Contains(lowerName, t) {
			return true
		}
	}
	return false
}

func (r *StoreResolver) contentFor(ctx context.Context, obj objectstore.Object) (string, error) {
	r.mu.RLock()
	entry, ok := r.cache[obj.Key]
	r.mu.RUnlock()
	if ok && time.Since(entry.fetched) < contentCacheTTL {
		return entry.content, nil
	}

	raw, err := r.store.Get(ctx, obj.Key)
	if err != nil {
		return "", err
	}
	content := extract(obj.Key, raw)

	r.mu.Lock()
	r.cache[obj.Key] = cacheEntry{content: content, fetched: time.Now()}
	r.mu.Unlock()

	return content, nil
}

// extract converts raw document bytes into text. Unknown binary
// formats degrade to an opaque placeholder instead of failing.
func extract(key string, raw []byte) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".pdf":
		if text, err := pdfText(raw); err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		return placeholder(key, raw)
	case ".txt", ".md", ".csv", ".json", ".log":
		return string(raw)
	default:
		if utf8.Valid(raw) {
			return string(raw)
		}
		return placeholder(key, raw)
	}
}

func pdfText(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func placeholder(key string, raw []byte) string {
	return fmt.Sprintf("[Unreadable document %s: %d bytes, type %s]",
		path.Base(key), len(raw), strings.TrimPrefix(path.Ext(key), "."))
}
