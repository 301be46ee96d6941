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

package hiero

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/blinklabs-io/gohiero/engine"
	"github.com/blinklabs-io/gohiero/keys"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/mirror"
	"github.com/blinklabs-io/gohiero/network"
	"github.com/blinklabs-io/gohiero/query"
)

// Config is the file form of the client configuration
//
//	network = "testnet"
//
//	[operator]
//	account = "0.0.1001"
//	key = "302e020100300506032b657004220420..."
//
//	[engine]
//	max_attempts = 10
//	request_timeout = "10s"
type Config struct {
	// Network names a predefined network. It is ignored when AddressBook is set
	Network string `toml:"network"`
	// AddressBook is the path of a JSON address book listing nodes and mirrors
	AddressBook string         `toml:"address_book"`
	Operator    OperatorConfig `toml:"operator"`
	Engine      EngineConfig   `toml:"engine"`
	Registry    RegistryConfig `toml:"registry"`
	Poller      PollerConfig   `toml:"poller"`
	Mirror      MirrorConfig   `toml:"mirror"`
}

type OperatorConfig struct {
	Account string `toml:"account"`
	Key     string `toml:"key"`
	// KeyType is "ed25519" or "secp256k1". It only matters for raw hex keys
	KeyType string `toml:"key_type"`
}

type EngineConfig struct {
	MaxAttempts    int           `toml:"max_attempts"`
	Timeout        time.Duration `toml:"timeout"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

type RegistryConfig struct {
	BaseDelay     time.Duration `toml:"base_delay"`
	MaxDelay      time.Duration `toml:"max_delay"`
	Jitter        float64       `toml:"jitter"`
	FatalCooldown time.Duration `toml:"fatal_cooldown"`
}

type PollerConfig struct {
	Interval    time.Duration `toml:"interval"`
	Timeout     time.Duration `toml:"timeout"`
	SwitchAfter int           `toml:"switch_after"`
}

type MirrorConfig struct {
	// Addresses replace the mirrors of the network when set
	Addresses            []string      `toml:"addresses"`
	IdleTimeout          time.Duration `toml:"idle_timeout"`
	QueueSize            int           `toml:"queue_size"`
	MaxReconnectAttempts int           `toml:"max_reconnect_attempts"`
	// CursorPath is a directory for a persistent cursor store. Subscriptions resume from
	// their saved position when it is set
	CursorPath string `toml:"cursor_path"`
}

// DefaultConfig returns the configuration used for anything a config file leaves out
func DefaultConfig() Config {
	return Config{
		Network: NetworkTestnet.Name,
		Engine: EngineConfig{
			MaxAttempts:    engine.DefaultMaxAttempts,
			Timeout:        engine.DefaultTimeout,
			RequestTimeout: engine.DefaultRequestTimeout,
		},
		Registry: RegistryConfig{
			BaseDelay:     network.DefaultBaseDelay,
			MaxDelay:      network.DefaultMaxDelay,
			Jitter:        network.DefaultJitter,
			FatalCooldown: network.DefaultFatalCooldown,
		},
		Poller: PollerConfig{
			Interval:    query.DefaultInterval,
			Timeout:     query.DefaultTimeout,
			SwitchAfter: query.DefaultSwitchAfter,
		},
		Mirror: MirrorConfig{
			IdleTimeout: mirror.DefaultIdleTimeout,
			QueueSize:   mirror.DefaultQueueSize,
		},
	}
}

// LoadConfig reads a TOML config file. Values the file does not set keep their defaults
func LoadConfig(path string) (Config, error) {
	var fileCfg Config
	if _, err := toml.DecodeFile(path, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return withDefaults(fileCfg)
}

// ParseConfig is like LoadConfig, but reads the TOML from a string
func ParseConfig(data string) (Config, error) {
	var fileCfg Config
	if _, err := toml.Decode(data, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return withDefaults(fileCfg)
}

func withDefaults(fileCfg Config) (Config, error) {
	ret := DefaultConfig()
	if err := mergo.Merge(&ret, fileCfg, mergo.WithOverride); err != nil {
		return Config{}, fmt.Errorf("merge config defaults: %w", err)
	}
	return ret, nil
}

// Options converts the config to client options. Options passed to NewClientFromConfig
// are applied after these
func (cfg Config) Options() ([]ClientOptionFunc, error) {
	var net Network
	if cfg.AddressBook != "" {
		book, err := network.NewAddressBookFromFile(cfg.AddressBook)
		if err != nil {
			return nil, fmt.Errorf("load address book: %w", err)
		}
		net = NetworkFromAddressBook(cfg.AddressBook, book)
	} else {
		net = NetworkByName(cfg.Network)
		if net.Name == NetworkInvalid.Name {
			return nil, fmt.Errorf("unknown network: %s", cfg.Network)
		}
	}
	if len(cfg.Mirror.Addresses) > 0 {
		net.Mirror = cfg.Mirror.Addresses
	}
	ret := []ClientOptionFunc{
		WithNetwork(net),
		WithEngineOptions(
			engine.WithMaxAttempts(cfg.Engine.MaxAttempts),
			engine.WithTimeout(cfg.Engine.Timeout),
			engine.WithRequestTimeout(cfg.Engine.RequestTimeout),
		),
		WithRegistryOptions(
			network.WithBaseDelay(cfg.Registry.BaseDelay),
			network.WithMaxDelay(cfg.Registry.MaxDelay),
			network.WithJitter(cfg.Registry.Jitter),
			network.WithFatalCooldown(cfg.Registry.FatalCooldown),
		),
		WithPollerOptions(
			query.WithInterval(cfg.Poller.Interval),
			query.WithTimeout(cfg.Poller.Timeout),
			query.WithSwitchAfter(cfg.Poller.SwitchAfter),
		),
		WithMirrorOptions(
			mirror.WithIdleTimeout(cfg.Mirror.IdleTimeout),
			mirror.WithQueueSize(cfg.Mirror.QueueSize),
			mirror.WithMaxReconnectAttempts(cfg.Mirror.MaxReconnectAttempts),
		),
	}
	if cfg.Operator.Account != "" || cfg.Operator.Key != "" {
		operatorOpt, err := cfg.Operator.option()
		if err != nil {
			return nil, err
		}
		ret = append(ret, operatorOpt)
	}
	return ret, nil
}

func (o OperatorConfig) option() (ClientOptionFunc, error) {
	if o.Account == "" || o.Key == "" {
		return nil, errors.New("operator needs both an account and a key")
	}
	account, err := ledger.ParseAccountId(o.Account)
	if err != nil {
		return nil, fmt.Errorf("operator account: %w", err)
	}
	keyType := keys.KeyTypeEd25519
	switch strings.ToLower(o.KeyType) {
	case "", "ed25519":
	case "secp256k1", "ecdsa":
		keyType = keys.KeyTypeSecp256k1
	default:
		return nil, fmt.Errorf("unknown operator key type: %s", o.KeyType)
	}
	key, err := keys.PrivateKeyFromString(o.Key, keyType)
	if err != nil {
		return nil, fmt.Errorf("operator key: %w", err)
	}
	return WithOperator(account, key), nil
}

// NewClientFromConfig returns a Client built from cfg
func NewClientFromConfig(cfg Config, options ...ClientOptionFunc) (*Client, error) {
	cfgOptions, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	var store *mirror.BadgerCursorStore
	if cfg.Mirror.CursorPath != "" {
		store, err = mirror.NewBadgerCursorStore(cfg.Mirror.CursorPath)
		if err != nil {
			return nil, fmt.Errorf("open cursor store: %w", err)
		}
		cfgOptions = append(cfgOptions, WithCursorStore(store))
	}
	c, err := NewClient(append(cfgOptions, options...)...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	if store != nil {
		c.closers = append(c.closers, store.Close)
	}
	return c, nil
}
