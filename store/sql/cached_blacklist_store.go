package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-ses-events/blacklist"
)

const blacklistCacheKeyPrefix = "go-ses-events::blacklist::v1"

// CachedBlacklistStore fronts a blacklist store with a cache for the
// send-path Contains check, which runs once per recipient per message.
// Writes pass through and invalidate the affected keys.
type CachedBlacklistStore struct {
	base  blacklist.Store
	cache repositorycache.CacheService
}

func NewCachedBlacklistStore(
	base blacklist.Store,
	cacheService repositorycache.CacheService,
) (*CachedBlacklistStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base blacklist store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: blacklist cache service is required")
	}
	return &CachedBlacklistStore{base: base, cache: cacheService}, nil
}

// BlacklistCacheKey returns the deterministic cache key for one address:
// go-ses-events::blacklist::v1::<email> with the email URL-path escaped after
// case folding.
func BlacklistCacheKey(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	return blacklistCacheKeyPrefix + "::" + url.PathEscape(email)
}

func (s *CachedBlacklistStore) Contains(ctx context.Context, email string) (bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return false, fmt.Errorf("sqlstore: cached blacklist store is not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}
	return repositorycache.GetOrFetch(ctx, s.cache, BlacklistCacheKey(email), func(ctx context.Context) (bool, error) {
		return s.base.Contains(ctx, email)
	})
}

func (s *CachedBlacklistStore) Add(ctx context.Context, emails ...string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached blacklist store is not configured")
	}
	if err := s.base.Add(ctx, emails...); err != nil {
		return err
	}
	return s.invalidate(ctx, emails)
}

func (s *CachedBlacklistStore) Remove(ctx context.Context, emails ...string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached blacklist store is not configured")
	}
	if err := s.base.Remove(ctx, emails...); err != nil {
		return err
	}
	return s.invalidate(ctx, emails)
}

func (s *CachedBlacklistStore) List(ctx context.Context) ([]string, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached blacklist store is not configured")
	}
	return s.base.List(ctx)
}

func (s *CachedBlacklistStore) invalidate(ctx context.Context, emails []string) error {
	for _, email := range blacklist.NormalizeAddresses(emails) {
		if err := s.cache.Delete(ctx, BlacklistCacheKey(email)); err != nil {
			return err
		}
	}
	return nil
}
