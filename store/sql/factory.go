package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

// RepositoryFactory wires every store off a single bun handle so callers
// configure persistence once and pull stores from one place.
type RepositoryFactory struct {
	db *bun.DB

	blacklistStore       *BlacklistStore
	notificationLogStore *NotificationLogStore
	statStore            *StatStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.blacklistStore != nil {
		return nil
	}
	return f.initStores()
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) BlacklistStore() *BlacklistStore {
	if f == nil {
		return nil
	}
	return f.blacklistStore
}

func (f *RepositoryFactory) NotificationLogStore() *NotificationLogStore {
	if f == nil {
		return nil
	}
	return f.notificationLogStore
}

func (f *RepositoryFactory) StatStore() *StatStore {
	if f == nil {
		return nil
	}
	return f.statStore
}

func (f *RepositoryFactory) initStores() error {
	blacklistStore, err := NewBlacklistStore(f.db)
	if err != nil {
		return err
	}
	f.blacklistStore = blacklistStore

	notificationLogStore, err := NewNotificationLogStore(f.db)
	if err != nil {
		return err
	}
	f.notificationLogStore = notificationLogStore

	statStore, err := NewStatStore(f.db)
	if err != nil {
		return err
	}
	f.statStore = statStore

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
