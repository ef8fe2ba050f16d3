package session

import (
	"fmt"
	"io"

	"github.com/lawnchairsociety/xianmud/internal/boltstore"
	"github.com/lawnchairsociety/xianmud/internal/config"
	"github.com/lawnchairsociety/xianmud/internal/database"
	"github.com/lawnchairsociety/xianmud/internal/state"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore opens the slot store named by cfg.Storage.Driver. The closer
// releases the backing file or connection pool.
func OpenStore(cfg *config.GameConfig) (state.SlotStore, io.Closer, error) {
	switch cfg.Storage.Driver {
	case "", "file":
		return state.NewFileStore(cfg.Session.SaveDir), nopCloser{}, nil
	case "bolt":
		s, err := boltstore.Open(cfg.Storage.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "sqlite", "postgres":
		db, err := database.OpenWithConfig(database.FromStorage(cfg.Storage))
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// stateConfig maps the session section onto manager settings.
func stateConfig(cfg *config.GameConfig, store state.SlotStore) state.Config {
	sc := state.DefaultConfig()
	if cfg.Session.StartingLocation != "" {
		sc.StartingLocation = cfg.Session.StartingLocation
	}
	if cfg.Session.MaxSnapshots > 0 {
		sc.MaxSnapshots = cfg.Session.MaxSnapshots
	}
	if cfg.Session.AutoSaveSlot != "" {
		sc.AutoSaveSlot = cfg.Session.AutoSaveSlot
	}
	sc.AutoSaveInterval = cfg.Session.AutoSaveInterval()
	sc.RelationshipMin = cfg.Session.RelationshipMin
	sc.RelationshipMax = cfg.Session.RelationshipMax
	sc.Store = store
	return sc
}
