package command

import (
	"fmt"
	"strings"
)

const (
	TypeAddToBlacklist      = "sesevents.command.blacklist.add"
	TypeRemoveFromBlacklist = "sesevents.command.blacklist.remove"
	TypeListBlacklist       = "sesevents.command.blacklist.list"
	TypePurgeBlacklist      = "sesevents.command.blacklist.purge"
	TypeCollectStats        = "sesevents.command.stats.collect"
	TypeSendQuota           = "sesevents.command.quota.get"
)

type AddToBlacklistMessage struct {
	Emails []string
}

func (AddToBlacklistMessage) Type() string { return TypeAddToBlacklist }

func (m AddToBlacklistMessage) Validate() error {
	return validateEmails(m.Emails)
}

type RemoveFromBlacklistMessage struct {
	Emails []string
}

func (RemoveFromBlacklistMessage) Type() string { return TypeRemoveFromBlacklist }

func (m RemoveFromBlacklistMessage) Validate() error {
	return validateEmails(m.Emails)
}

type ListBlacklistMessage struct{}

func (ListBlacklistMessage) Type() string { return TypeListBlacklist }

func (ListBlacklistMessage) Validate() error { return nil }

type PurgeBlacklistMessage struct{}

func (PurgeBlacklistMessage) Type() string { return TypePurgeBlacklist }

func (PurgeBlacklistMessage) Validate() error { return nil }

type CollectStatsMessage struct{}

func (CollectStatsMessage) Type() string { return TypeCollectStats }

func (CollectStatsMessage) Validate() error { return nil }

type SendQuotaMessage struct{}

func (SendQuotaMessage) Type() string { return TypeSendQuota }

func (SendQuotaMessage) Validate() error { return nil }

func validateEmails(emails []string) error {
	if len(emails) == 0 {
		return fmt.Errorf("command: at least one email is required")
	}
	for _, email := range emails {
		if strings.TrimSpace(email) == "" {
			return fmt.Errorf("command: email entries must not be empty")
		}
	}
	return nil
}
