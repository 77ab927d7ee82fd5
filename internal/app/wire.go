package app

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"parley/internal/store"
)

// Wire bundles the dependencies the commands share.
type Wire struct {
	Cfg      Config
	Log      *logrus.Logger
	Profiles *store.ProfileStore
}

// NewWire builds the dependency graph from cfg, creating the home directory
// if needed.
func NewWire(cfg Config) (*Wire, error) {
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, fmt.Errorf("create home dir: %w", err)
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(level)

	return &Wire{
		Cfg:      cfg,
		Log:      logger,
		Profiles: store.NewProfileStore(cfg.Home, logger),
	}, nil
}
