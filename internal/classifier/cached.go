package classifier

import (
	"context"
	"strings"

	"consigli/internal/cache"
	"consigli/internal/ports"
)

// Cached remembers successful predictions by normalized description so that
// repeated expenses ("coffee", "Coffee ") skip the remote call. Failures are
// never cached.
type Cached struct {
	next  ports.Classifier
	cache cache.Cache[string]
}

func NewCached(next ports.Classifier, c cache.Cache[string]) *Cached {
	return &Cached{next: next, cache: c}
}

func (c *Cached) Predict(ctx context.Context, description string) (string, error) {
	key := cacheKey(description)
	if category, ok := c.cache.Get(key); ok {
		return category, nil
	}

	category, err := c.next.Predict(ctx, description)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, category)
	return category, nil
}

func cacheKey(description string) string {
	return strings.Join(strings.Fields(strings.ToLower(description)), " ")
}
