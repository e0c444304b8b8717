package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

type VerdictCache interface {
	GetVerdicts(ctx context.Context, keys []string) (map[string]Verdict, error)
	SetVerdicts(ctx context.Context, verdicts map[string]Verdict) error
}

// Cached serves repeated texts from a cache and labels only the misses, in a
// single batch. Cache failures fall through to the wrapped labeler.
type Cached struct {
	next      Labeler
	cache     VerdictCache
	namespace string
}

// NewCached wraps next. namespace must change whenever the backend or its
// thresholds change.
func NewCached(next Labeler, cache VerdictCache, namespace string) *Cached {
	return &Cached{next: next, cache: cache, namespace: namespace}
}

func (c *Cached) Label(ctx context.Context, texts []string) ([]Verdict, error) {
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	hits, err := c.cache.GetVerdicts(ctx, keys)
	if err != nil {
		slog.Warn("verdict cache read failed", "error", err)
		hits = nil
	}

	verdicts := make([]Verdict, len(texts))
	var missTexts []string
	var missIdx []int
	for i, k := range keys {
		if v, ok := hits[k]; ok {
			verdicts[i] = v
			continue
		}
		missTexts = append(missTexts, texts[i])
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return verdicts, nil
	}

	fresh, err := c.next.Label(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, ErrScoreCount
	}

	fill := make(map[string]Verdict, len(fresh))
	for j, v := range fresh {
		verdicts[missIdx[j]] = v
		fill[keys[missIdx[j]]] = v
	}
	if err := c.cache.SetVerdicts(ctx, fill); err != nil {
		slog.Warn("verdict cache write failed", "error", err)
	}

	return verdicts, nil
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.namespace + ":" + hex.EncodeToString(sum[:])
}
