// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the stdfu settings from the command line flags, the
// STDFU_* environment variables and the optional configuration file.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/embeddedgo/stdfu/stdfu/internal/dfu"
)

const (
	// PathEnv if set, will load the config from that path.
	PathEnv   = "STDFU_CONFIG"
	envPrefix = "STDFU"
)

// Keys
const (
	Serial      = "serial"
	USB         = "usb"
	Address     = "address"
	BlockSize   = "block-size"
	Erase       = "erase"
	EraseAuto   = "erase-auto"
	MassErase   = "mass-erase"
	Reset       = "reset"
	PollTimeout = "poll-timeout"
	PollSpeed   = "poll-speed"
	LogLevel    = "log-level"
	Quiet       = "quiet"
)

var keys = []string{
	Serial, USB, Address, BlockSize, Erase, EraseAuto, MassErase, Reset,
	PollTimeout, PollSpeed, LogLevel, Quiet,
}

type Config struct {
	Serial      string        `mapstructure:"serial"`
	USB         string        `mapstructure:"usb"`
	Address     uint32        `mapstructure:"address"`
	BlockSize   int           `mapstructure:"block-size"`
	Erase       []uint32      `mapstructure:"erase"`
	EraseAuto   bool          `mapstructure:"erase-auto"`
	MassErase   bool          `mapstructure:"mass-erase"`
	Reset       bool          `mapstructure:"reset"`
	PollTimeout time.Duration `mapstructure:"poll-timeout"`
	PollSpeed   uint          `mapstructure:"poll-speed"`
	LogLevel    string        `mapstructure:"log-level"`
	Quiet       bool          `mapstructure:"quiet"`
}

// New returns a viper instance with the defaults set, the environment bound
// and the flags (if not nil) bound.
func New(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(Address, dfu.AppBase)
	v.SetDefault(BlockSize, 2048)
	v.SetDefault(Reset, true)
	v.SetDefault(PollTimeout, dfu.DefaultPollTimeout)
	v.SetDefault(PollSpeed, 1)
	v.SetDefault(LogLevel, "info")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// DefaultPath returns the path of the user configuration file.
func DefaultPath() (string, error) {
	if path, ok := os.LookupEnv(PathEnv); ok {
		return path, nil
	}
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homedir, ".config", "stdfu", "config.yaml"), nil
}

// ReadFile reads the configuration file into v. If path is empty the
// DefaultPath is used and a missing file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	optional := path == ""
	if optional {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil
		}
	}
	v.SetConfigFile(path)
	err := v.ReadInConfig()
	if optional && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load decodes the settings stored in v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, err
	}
	if cfg.BlockSize <= 0 {
		return nil, errors.New("block-size must be positive")
	}
	if cfg.PollSpeed == 0 {
		cfg.PollSpeed = 1
	}
	return &cfg, nil
}
