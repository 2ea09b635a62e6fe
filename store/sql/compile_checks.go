package sqlstore

import (
	"github.com/goliatone/go-ses-events/blacklist"
	"github.com/goliatone/go-ses-events/stats"
)

var (
	_ blacklist.Store = (*BlacklistStore)(nil)
	_ blacklist.Store = (*CachedBlacklistStore)(nil)
	_ stats.Store     = (*StatStore)(nil)
)
