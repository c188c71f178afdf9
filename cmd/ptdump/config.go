package main

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/spf13/pflag"
	"github.com/tailscale/hujson"
	"go4.org/xdgdir"

	"github.com/oy3o/ptypes"
)

type globalConfig struct {
	Debug       bool   `json:"debug"`
	ByteOrder   string `json:"byteOrder"`
	PointerSize int    `json:"pointerSize"`
	MaxElements int    `json:"maxElements"`
}

func defaultGlobalConfig() *globalConfig {
	return &globalConfig{
		ByteOrder:   "little",
		PointerSize: ptypes.Default.PointerSize,
		MaxElements: ptypes.Default.MaxElements,
	}
}

// configFiles lists the config files to merge, least preferred first.
var configFiles = func() iter.Seq[string] {
	paths := xdgdir.Config.SearchPaths()
	slices.Reverse(paths)
	return func(yield func(string) bool) {
		for _, dir := range paths {
			if !yield(filepath.Join(dir, "ptdump", "config.hujson")) {
				return
			}
		}
	}
}

func (g *globalConfig) mergeFiles(paths iter.Seq[string]) error {
	for path := range paths {
		huJSONData, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		jsonData, err := hujson.Standardize(huJSONData)
		if err != nil {
			return fmt.Errorf("read %s: %v", path, err)
		}
		if err := jsonv2.Unmarshal(jsonData, g, jsonv2.RejectUnknownMembers(false)); err != nil {
			return fmt.Errorf("read %s: %v", path, err)
		}
	}
	return nil
}

func (g *globalConfig) mergeEnvironment() error {
	if order := os.Getenv("PTDUMP_BYTE_ORDER"); order != "" {
		g.ByteOrder = order
	}
	if size := os.Getenv("PTDUMP_POINTER_SIZE"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			return fmt.Errorf("PTDUMP_POINTER_SIZE: %v", err)
		}
		g.PointerSize = n
	}
	return nil
}

type globalFlags struct {
	debug       bool
	byteOrder   string
	pointerSize int
	maxElements int
}

// mergeFlags applies the flags given on the command line.
func (g *globalConfig) mergeFlags(fs *pflag.FlagSet, f *globalFlags) {
	if fs.Changed("debug") {
		g.Debug = f.debug
	}
	if fs.Changed("byte-order") {
		g.ByteOrder = f.byteOrder
	}
	if fs.Changed("pointer-size") {
		g.PointerSize = f.pointerSize
	}
	if fs.Changed("max-elements") {
		g.MaxElements = f.maxElements
	}
}

// arenaConfig converts the settings into a decoding configuration.
func (g *globalConfig) arenaConfig() (*ptypes.Config, error) {
	cfg := ptypes.Default
	order, err := ptypes.ParseByteOrder(g.ByteOrder)
	if err != nil {
		return nil, err
	}
	cfg.ByteOrder = order
	switch g.PointerSize {
	case 0:
	case 4, 8:
		cfg.PointerSize = g.PointerSize
	default:
		return nil, fmt.Errorf("unsupported pointer size %d", g.PointerSize)
	}
	if g.MaxElements > 0 {
		cfg.MaxElements = g.MaxElements
	}
	return &cfg, nil
}
