package train

import (
	"context"
	"errors"
	"time"

	"github.com/Chicken/VenaaRauhassa/internal/cache"
	"github.com/Chicken/VenaaRauhassa/internal/models"
)

// Source assembles trains; both Assembler and CachedAssembler implement it
type Source interface {
	Assemble(ctx context.Context, date, trainNumber string) (*models.Train, error)
}

// CachedAssembler serves assembled trains from a fresh/stale cache keyed by date and number
type CachedAssembler struct {
	source Source
	cache  *cache.SWR[*models.Train]
}

func NewCachedAssembler(source Source, fresh, stale time.Duration, opts cache.Options) *CachedAssembler {
	return &CachedAssembler{
		source: source,
		cache:  cache.NewSWR[*models.Train]("getTrainOnDate", fresh, stale, opts),
	}
}

// Assemble returns the cached train or assembles it. Unknown trains are
// cached too, so repeated lookups of a missing train stay off the upstream.
func (c *CachedAssembler) Assemble(ctx context.Context, date, trainNumber string) (*models.Train, error) {
	t, err := c.cache.Get(ctx, cache.Key(date, trainNumber), func(ctx context.Context) (*models.Train, error) {
		t, err := c.source.Assemble(ctx, date, trainNumber)
		if errors.Is(err, ErrTrainNotFound) {
			return nil, nil
		}
		return t, err
	})
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTrainNotFound
	}
	return t, nil
}

// Purge drops every cached train
func (c *CachedAssembler) Purge() {
	c.cache.Purge()
}
