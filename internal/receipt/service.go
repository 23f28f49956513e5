package receipt

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetStats(ctx context.Context, receiptID int64) (Stats, error)
}

// Service derives and persists receipt summary status. It never runs as a
// side effect of allocation mutations; the surrounding workflow (HTTP layer
// or background worker) decides when to recompute.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
}

// NewService builds Service. cache may be nil.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// RecomputeAndPersist reads the receipt's items, derives the summary status
// and writes it onto the receipt row in one transaction.
func (s *Service) RecomputeAndPersist(ctx context.Context, receiptID int64) (Status, error) {
	var status Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		items, err := tx.ListItemQuantities(ctx, receiptID)
		if err != nil {
			return err
		}
		status = CalculateStatus(items)
		return tx.UpdateReceiptStatus(ctx, receiptID, status)
	})
	if err != nil {
		return "", err
	}
	s.cache.Invalidate(ctx, receiptID)
	return status, nil
}

// GetStats returns aggregate totals for a receipt. Concurrent reads for the
// same receipt collapse into one query; results are cached with a short TTL.
func (s *Service) GetStats(ctx context.Context, receiptID int64) (Stats, error) {
	if stats, ok := s.cache.GetStats(ctx, receiptID); ok {
		return stats, nil
	}
	value, err, _ := s.group.Do(fmt.Sprintf("stats:%d", receiptID), func() (any, error) {
		stats, err := s.repo.GetStats(ctx, receiptID)
		if err != nil {
			return Stats{}, err
		}
		s.cache.SetStats(ctx, stats)
		return stats, nil
	})
	if err != nil {
		return Stats{}, err
	}
	return value.(Stats), nil
}
