// Copyright © 2024 Rak Laptudirm <rak@laptudirm.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the configuration of boardlink. Values are layered
// from the built-in defaults, a YAML file, and BOARDLINK_ environment
// variables, each overriding the last.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"laptudirm.com/x/boardlink/pkg/link"
	"laptudirm.com/x/boardlink/pkg/oracle"
	"laptudirm.com/x/boardlink/pkg/session"
)

// EnvPrefix prefixes the environment variables read by Load.
const EnvPrefix = "BOARDLINK_"

// DefaultPath is the configuration file read when none is given.
var DefaultPath = filepath.Join(xdg.ConfigHome, "boardlink", "config.yaml")

type Config struct {
	Link    link.Options        `yaml:"link"`
	Oracle  oracle.EngineConfig `yaml:"oracle" envPrefix:"ORACLE_"`
	Book    Book                `yaml:"book" envPrefix:"BOOK_"`
	Session session.Config      `yaml:"session"`

	Reconnect Reconnect `yaml:"reconnect" envPrefix:"RECONNECT_"`
}

// Book configures the polyglot opening book. An empty path disables it.
type Book struct {
	Path  string `yaml:"path" env:"PATH"`
	Plies int    `yaml:"plies" env:"PLIES"`
}

// Reconnect configures how play reopens a lost link.
type Reconnect struct {
	Enabled     bool          `yaml:"enabled" env:"ENABLED"`
	MaxTries    uint          `yaml:"max-tries" env:"MAX_TRIES"`
	MaxInterval time.Duration `yaml:"max-interval" env:"MAX_INTERVAL"`
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	engine := oracle.DefaultEngineConfig()
	engine.Path = defaultEnginePath(runtime.GOOS)

	return Config{
		Link: link.Options{
			Device:      defaultDevice(runtime.GOOS),
			Baud:        link.DefaultBaudRate,
			ReadTimeout: link.DefaultTimeout,
		},
		Oracle: engine,
		Book:   Book{Plies: 16},
		Session: session.Config{
			Opening: session.DefaultOpening,
		},
		Reconnect: Reconnect{
			MaxTries:    10,
			MaxInterval: 30 * time.Second,
		},
	}
}

func defaultEnginePath(goos string) string {
	if goos == "darwin" {
		return "/opt/homebrew/bin/stockfish"
	}

	return "/usr/bin/stockfish"
}

func defaultDevice(goos string) string {
	switch goos {
	case "darwin":
		return "/dev/tty.usbserial-0001"
	case "windows":
		return "COM3"
	default:
		return "/dev/ttyUSB0"
	}
}

// Load reads the configuration file at path over the defaults and applies
// the environment on top. An empty path reads DefaultPath, which may not
// exist.
func Load(path string) (Config, error) {
	config := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}

	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// no configuration file

	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := env.ParseWithOptions(&config, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	return config, nil
}

// Validate checks the configuration for values which can not work.
func (config Config) Validate() error {
	if config.Link.Device == "" {
		return link.ErrNoDevice
	}

	if config.Oracle.Path == "" {
		return errors.New("no engine configured")
	}

	if err := config.Oracle.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if !oracle.NewPosition().IsLegal(config.Session.Opening) {
		return fmt.Errorf("opening %q is not a legal first move", config.Session.Opening)
	}

	return nil
}

// Dump returns the configuration as YAML.
func (config Config) Dump() ([]byte, error) {
	return yaml.Marshal(config)
}
