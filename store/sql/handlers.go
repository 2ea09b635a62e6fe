package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func blacklistedAddressHandlers() repository.ModelHandlers[*blacklistedAddressRecord] {
	return repository.ModelHandlers[*blacklistedAddressRecord]{
		NewRecord: func() *blacklistedAddressRecord {
			return &blacklistedAddressRecord{}
		},
		GetID: func(record *blacklistedAddressRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *blacklistedAddressRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *blacklistedAddressRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func bounceHandlers() repository.ModelHandlers[*bounceRecord] {
	return repository.ModelHandlers[*bounceRecord]{
		NewRecord: func() *bounceRecord {
			return &bounceRecord{}
		},
		GetID: func(record *bounceRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *bounceRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *bounceRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func complaintHandlers() repository.ModelHandlers[*complaintRecord] {
	return repository.ModelHandlers[*complaintRecord]{
		NewRecord: func() *complaintRecord {
			return &complaintRecord{}
		},
		GetID: func(record *complaintRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *complaintRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *complaintRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func sendStatHandlers() repository.ModelHandlers[*sendStatRecord] {
	return repository.ModelHandlers[*sendStatRecord]{
		NewRecord: func() *sendStatRecord {
			return &sendStatRecord{}
		},
		GetID: func(record *sendStatRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *sendStatRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *sendStatRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
