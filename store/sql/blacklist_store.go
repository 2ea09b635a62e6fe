package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-ses-events/blacklist"
)

// BlacklistStore persists suppressed addresses. Inserts race safely: the
// unique index on email is the arbiter and a violation means another writer
// already recorded the address, which is the outcome we wanted anyway.
type BlacklistStore struct {
	db   *bun.DB
	repo repository.Repository[*blacklistedAddressRecord]
}

func NewBlacklistStore(db *bun.DB) (*BlacklistStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*blacklistedAddressRecord](db, blacklistedAddressHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid blacklist repository wiring: %w", err)
		}
	}
	return &BlacklistStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *BlacklistStore) Contains(ctx context.Context, email string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: blacklist store is not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}
	count, err := s.db.NewSelect().
		Model((*blacklistedAddressRecord)(nil)).
		Where("?TableAlias.email = ?", email).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Add inserts the addresses that are not already present. A single address
// goes straight to insert and lets the unique index absorb the duplicate; a
// batch first queries the already-present complement to keep the insert small.
func (s *BlacklistStore) Add(ctx context.Context, emails ...string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: blacklist store is not configured")
	}
	addresses := blacklist.NormalizeAddresses(emails)
	if len(addresses) == 0 {
		return nil
	}

	if len(addresses) == 1 {
		return s.insert(ctx, addresses[0])
	}

	var existing []string
	err := s.db.NewSelect().
		Model((*blacklistedAddressRecord)(nil)).
		Column("email").
		Where("?TableAlias.email IN (?)", bun.In(addresses)).
		Scan(ctx, &existing)
	if err != nil {
		return err
	}
	present := make(map[string]struct{}, len(existing))
	for _, email := range existing {
		present[email] = struct{}{}
	}

	for _, email := range addresses {
		if _, ok := present[email]; ok {
			continue
		}
		if err := s.insert(ctx, email); err != nil {
			return err
		}
	}
	return nil
}

func (s *BlacklistStore) insert(ctx context.Context, email string) error {
	record := &blacklistedAddressRecord{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *BlacklistStore) Remove(ctx context.Context, emails ...string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: blacklist store is not configured")
	}
	addresses := blacklist.NormalizeAddresses(emails)
	if len(addresses) == 0 {
		return nil
	}
	_, err := s.db.NewDelete().
		Model((*blacklistedAddressRecord)(nil)).
		Where("email IN (?)", bun.In(addresses)).
		Exec(ctx)
	return err
}

func (s *BlacklistStore) List(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: blacklist store is not configured")
	}
	var emails []string
	err := s.db.NewSelect().
		Model((*blacklistedAddressRecord)(nil)).
		Column("email").
		Order("email ASC").
		Scan(ctx, &emails)
	if err != nil {
		return nil, err
	}
	return emails, nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
