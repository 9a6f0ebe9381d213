package main

import (
	"fmt"

	"github.com/use-agent/webkeep/archiver"
	"github.com/use-agent/webkeep/cleaner"
	"github.com/use-agent/webkeep/config"
	"github.com/use-agent/webkeep/fetcher"
	"github.com/use-agent/webkeep/imaging"
	"github.com/use-agent/webkeep/store"
)

// app holds the configuration and the components built from it.
type app struct {
	cfg      *config.Config
	fetcher  *fetcher.Fetcher
	store    *store.Store
	archiver *archiver.Archiver
}

// openStore builds only the store, for commands that never fetch.
func (a *app) openStore() error {
	if a.store != nil {
		return nil
	}
	st, err := store.New(store.Config{
		BaseDir:      a.cfg.Store.BaseDir,
		AllowedRoots: a.cfg.Store.AllowedRoots,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = st
	return nil
}

// build wires fetcher, cleaner, normalizer and store into an archiver.
func (a *app) build() error {
	if err := a.openStore(); err != nil {
		return err
	}

	f, err := fetcher.New(a.cfg.Fetch)
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}
	a.fetcher = f

	cl, err := cleaner.New(cleaner.Options{
		Mode:          a.cfg.Extract.Mode,
		LinkStyle:     a.cfg.Extract.LinkStyle,
		DedupSections: a.cfg.Extract.DedupSections,
		CSSSelector:   a.cfg.Extract.CSSSelector,
	})
	if err != nil {
		return fmt.Errorf("init cleaner: %w", err)
	}

	a.archiver = archiver.New(f, cl, cl, imaging.NewNormalizer(a.cfg.Images.Quality), a.store, archiver.Options{
		MaxPx:   a.cfg.Images.MaxPx,
		Workers: a.cfg.Images.Workers,
	})
	return nil
}

// Close releases background resources.
func (a *app) Close() {
	if a.fetcher != nil {
		a.fetcher.Close()
	}
}
