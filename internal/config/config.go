// Package config loads the server configuration, including the instrument
// set registered at startup, from a TOML file.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"gungnir/internal/common"
)

type Config struct {
	Server   Server
	Pipeline Pipeline
	Journal  Journal
	Log      Log
	Symbols  []Symbol
}

type Server struct {
	Address string
	Port    int
}

type Pipeline struct {
	CommandBuffer int
	EventBuffer   int
}

type Journal struct {
	Enabled bool
	Path    string
}

type Log struct {
	Level string
}

type Symbol struct {
	ID         int32
	Base       int32
	Quote      int32
	BaseScale  int64
	QuoteScale int64
	TakerFee   int64
	MakerFee   int64
}

func (s Symbol) Spec() common.SymbolSpec {
	return common.SymbolSpec{
		ID:         common.SymbolID(s.ID),
		Kind:       common.CurrencyPair,
		Base:       common.CurrencyID(s.Base),
		Quote:      common.CurrencyID(s.Quote),
		BaseScale:  s.BaseScale,
		QuoteScale: s.QuoteScale,
		TakerFee:   s.TakerFee,
		MakerFee:   s.MakerFee,
	}
}

func Default() Config {
	return Config{
		Server:   Server{Address: "0.0.0.0", Port: 9001},
		Pipeline: Pipeline{CommandBuffer: 1024, EventBuffer: 4096},
		Journal:  Journal{Enabled: false, Path: "journal.db"},
		Log:      Log{Level: "info"},
	}
}

// Load reads path over the defaults. A missing path returns the defaults
// untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
