package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[AddToBlacklistMessage]      = (*AddToBlacklistCommand)(nil)
	_ gocmd.Commander[RemoveFromBlacklistMessage] = (*RemoveFromBlacklistCommand)(nil)
	_ gocmd.Commander[ListBlacklistMessage]       = (*ListBlacklistCommand)(nil)
	_ gocmd.Commander[PurgeBlacklistMessage]      = (*PurgeBlacklistCommand)(nil)
	_ gocmd.Commander[CollectStatsMessage]        = (*CollectStatsCommand)(nil)
	_ gocmd.Commander[SendQuotaMessage]           = (*SendQuotaCommand)(nil)
)
