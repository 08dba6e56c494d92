// Copyright 2025 Google LLC
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

package cfg

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ParseConfig builds a Config from os.Args: flags, an optional --config-file
// YAML overlay, and defaults, in that order of precedence. It is the
// standalone entry point used by tests and any caller that doesn't already
// own a FlagSet (e.g. a cobra command, which should use Resolve instead).
func ParseConfig() (Config, error) {
	flagSet := pflag.NewFlagSet("nfstrace-replay", pflag.ContinueOnError)
	if err := BindFlags(flagSet); err != nil {
		return Config{}, err
	}
	flagSet.String("config-file", "", "path to a YAML config file")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return Config{}, err
	}

	return Resolve(flagSet)
}

// Resolve builds a Config from an already-parsed FlagSet (as bound by
// BindFlags, plus a "config-file" string flag). Cobra commands call this
// directly against cmd.Flags() instead of going through ParseConfig, so
// cobra's own argument parsing is the single source of truth for the
// process's os.Args.
func Resolve(flagSet *pflag.FlagSet) (Config, error) {
	positional := flagSet.Args()
	if len(positional) < 1 {
		return Config{}, fmt.Errorf("a trace-file argument is required")
	}

	v := viper.New()
	if err := v.BindPFlags(flagSet); err != nil {
		return Config{}, err
	}

	if configFile, err := flagSet.GetString("config-file"); err == nil && configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %q: %w", configFile, err)
		}
	}

	config := DefaultConfig()
	if err := v.Unmarshal(&config, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = DecodeHook()
		dc.TagName = "yaml"
	}); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	config.TraceFile = positional[0]

	if noGC, err := flagSet.GetBool("no-gc"); err == nil && noGC {
		config.Replay.GCEnabled = false
	}

	if err := ValidateConfig(&config); err != nil {
		return Config{}, err
	}

	return config, nil
}
