// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	hiero "github.com/blinklabs-io/gohiero"
)

type GlobalFlags struct {
	Flagset     *flag.FlagSet
	Config      string
	Network     string
	AddressBook string
	Mirror      string
	UseTls      bool
	Debug       bool
}

func NewGlobalFlags() *GlobalFlags {
	f := &GlobalFlags{
		Flagset: flag.NewFlagSet(os.Args[0], flag.ExitOnError),
	}
	f.Flagset.StringVar(
		&f.Config,
		"config",
		"",
		"path to a TOML client config file",
	)
	f.Flagset.StringVar(
		&f.Network,
		"network",
		"",
		"specifies the network to use (mainnet, testnet, previewnet, local). this overrides the config file",
	)
	f.Flagset.StringVar(
		&f.AddressBook,
		"address-book",
		"",
		"path to a JSON address book. this overrides -network",
	)
	f.Flagset.StringVar(
		&f.Mirror,
		"mirror",
		"",
		"mirror address in address:port format. this overrides the network's mirrors",
	)
	f.Flagset.BoolVar(&f.UseTls, "tls", false, "enable TLS")
	f.Flagset.BoolVar(&f.Debug, "debug", false, "enable debug logging")
	return f
}

func (f *GlobalFlags) Parse() {
	if err := f.Flagset.Parse(os.Args[1:]); err != nil {
		fmt.Printf("failed to parse command args: %s\n", err)
		os.Exit(1)
	}
	if f.Network != "" && !hiero.NetworkByName(f.Network).Valid() {
		fmt.Printf("Invalid network specified: %s\n", f.Network)
		os.Exit(1)
	}
}

// ClientConfig returns the client config described by the flags
func (f *GlobalFlags) ClientConfig() (hiero.Config, error) {
	cfg := hiero.DefaultConfig()
	if f.Config != "" {
		var err error
		cfg, err = hiero.LoadConfig(f.Config)
		if err != nil {
			return hiero.Config{}, err
		}
	}
	if f.Network != "" {
		cfg.Network = f.Network
	}
	if f.AddressBook != "" {
		cfg.AddressBook = f.AddressBook
	}
	if f.Mirror != "" {
		cfg.Mirror.Addresses = []string{f.Mirror}
	}
	return cfg, nil
}

func (f *GlobalFlags) Logger() *slog.Logger {
	level := slog.LevelInfo
	if f.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
