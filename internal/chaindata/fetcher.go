package chaindata

import (
	"context"
	"fmt"
	"time"

	"credshield-go/internal/models"
	"credshield-go/internal/snapshot"

	"github.com/ethereum/go-ethereum/common"
)

// RawSource supplies provider-shaped wallet activity.
type RawSource interface {
	FetchRaw(ctx context.Context, addr common.Address) (models.RawActivity, error)
}

// Fetcher turns raw provider activity into a normalized snapshot.
type Fetcher struct {
	source RawSource
}

func NewFetcher(source RawSource) *Fetcher {
	return &Fetcher{source: source}
}

// FetchActivitySnapshot returns an error wrapping snapshot.ErrDataUnavailable when the
// provider cannot be reached; callers fall back to snapshot.Empty.
func (f *Fetcher) FetchActivitySnapshot(ctx context.Context, addr common.Address, asOf time.Time) (models.ActivitySnapshot, error) {
	raw, err := f.source.FetchRaw(ctx, addr)
	if err != nil {
		return models.ActivitySnapshot{}, err
	}
	snap, err := snapshot.Build(addr, asOf, raw)
	if err != nil {
		return models.ActivitySnapshot{}, fmt.Errorf("%w: %v", snapshot.ErrDataUnavailable, err)
	}
	return snap, nil
}
