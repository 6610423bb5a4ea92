package main

import (
	"fmt"
	"strconv"

	"asmdiff/internal/dbgrecords"
	"asmdiff/internal/diffconfig"
	"asmdiff/internal/exeview"
	"asmdiff/internal/peview"
	"asmdiff/internal/symtab"
)

// loadedImage bundles the view the core operations need against one binary:
// its executable view, merged symbol store, and optional debug document
// (kept around so disasm can attach source lines for a matching function).
type loadedImage struct {
	Exe   *exeview.Executable
	Store *symtab.Store
	Debug *dbgrecords.Document
}

// loadImage opens exePath, applies any section/symbol overrides from
// configPath, and merges in debugPath's symbol records. debugPath and
// configPath may both be empty.
func loadImage(exePath, debugPath, configPath string) (*loadedImage, error) {
	loaded, err := peview.Open(exePath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", exePath, err)
	}

	var cfg *diffconfig.Document
	if configPath != "" {
		cfg, err = diffconfig.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", configPath, err)
		}
	}

	sections := diffconfig.ApplySections(loaded.Exe.Sections(), cfg)
	exe, err := exeview.New(loaded.Exe.ImageBase(), sections, loaded.Exe.EntryPoint())
	if err != nil {
		return nil, fmt.Errorf("rebuild executable view: %w", err)
	}

	store := symtab.New()
	for _, s := range loaded.Symbols {
		store.Insert(s, false)
	}

	var doc *dbgrecords.Document
	if debugPath != "" {
		doc, err = dbgrecords.Load(debugPath)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", debugPath, err)
		}
		dbgrecords.PopulateStore(store, doc)
	}

	diffconfig.ApplySymbols(store, cfg)

	return &loadedImage{Exe: exe, Store: store, Debug: doc}, nil
}

// parseAddress accepts both "0x"-prefixed and bare hex/decimal addresses.
func parseAddress(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return v, nil
}
