package ops

import (
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/dailyaf/vaultcap/internal/config"
	"github.com/dailyaf/vaultcap/internal/db"
	"github.com/dailyaf/vaultcap/internal/remote"
	"github.com/dailyaf/vaultcap/internal/settings"
	"github.com/dailyaf/vaultcap/internal/vault"
)

// Open builds an Env from cfg: the vault at cfg.VaultDir, its settings
// document, the configured catalog source and the journal under baseDir.
// Callers own the returned Env and must Close it.
func Open(cfg *config.Config, baseDir string, logger *log.Logger) (*Env, error) {
	root, err := filepath.Abs(cfg.VaultDir)
	if err != nil {
		return nil, fmt.Errorf("resolve vault dir: %w", err)
	}
	host, err := vault.NewDirHost(root, logger)
	if err != nil {
		return nil, err
	}

	source, err := remote.NewSource(cfg)
	if err != nil {
		return nil, err
	}

	database, err := db.Init(baseDir)
	if err != nil {
		return nil, err
	}
	db.ConfigurePool(database, cfg)

	return &Env{
		DB:       database,
		Config:   cfg,
		Vault:    host,
		Settings: settings.NewStore(host, cfg.SettingsPath),
		Catalog:  remote.NewCatalog(source),
		Logger:   logger,
		Now:      time.Now,
	}, nil
}

// Close releases the journal.
func (e *Env) Close() error {
	if e.DB == nil {
		return nil
	}
	var database *sql.DB
	database, e.DB = e.DB, nil
	return database.Close()
}
