package sqlstore

import (
	"context"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-ses-events/stats"
)

// StatStore persists daily send statistics, one row per UTC date.
type StatStore struct {
	db   *bun.DB
	repo repository.Repository[*sendStatRecord]
}

func NewStatStore(db *bun.DB) (*StatStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*sendStatRecord](db, sendStatHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid send stat repository wiring: %w", err)
		}
	}
	return &StatStore{
		db:   db,
		repo: repo,
	}, nil
}

// Upsert writes the datapoint for its date, replacing the counters when the
// row already exists. Collection runs overlap the provider's two-week window
// and must converge instead of accumulating.
func (s *StatStore) Upsert(ctx context.Context, point stats.Datapoint) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: stat store is not configured")
	}
	date := point.Date.UTC().Truncate(24 * time.Hour)
	now := time.Now().UTC()

	record := &sendStatRecord{
		ID:               uuid.NewString(),
		Date:             date,
		DeliveryAttempts: point.DeliveryAttempts,
		Bounces:          point.Bounces,
		Complaints:       point.Complaints,
		Rejects:          point.Rejects,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if !isUniqueViolation(err) {
			return err
		}
		_, updateErr := s.db.NewUpdate().
			Model((*sendStatRecord)(nil)).
			Set("delivery_attempts = ?", point.DeliveryAttempts).
			Set("bounces = ?", point.Bounces).
			Set("complaints = ?", point.Complaints).
			Set("rejects = ?", point.Rejects).
			Set("updated_at = ?", now).
			Where("date = ?", date).
			Exec(ctx)
		return updateErr
	}
	return nil
}

func (s *StatStore) Range(ctx context.Context, from, to time.Time) ([]stats.Datapoint, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: stat store is not configured")
	}
	var records []*sendStatRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.date >= ?", from.UTC().Truncate(24*time.Hour)).
		Where("?TableAlias.date <= ?", to.UTC().Truncate(24*time.Hour)).
		Order("date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	points := make([]stats.Datapoint, 0, len(records))
	for _, record := range records {
		points = append(points, stats.Datapoint{
			Date:             record.Date.UTC(),
			DeliveryAttempts: record.DeliveryAttempts,
			Bounces:          record.Bounces,
			Complaints:       record.Complaints,
			Rejects:          record.Rejects,
		})
	}
	return points, nil
}
