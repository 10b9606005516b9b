// SPDX-License-Identifier: Apache-2.0
//
// Copyright 2025 Binaek Sarkar
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the PDP's own configuration file: the top-level
// combining algorithm and the set of policy documents to compile.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/sentrie-sh/saplpdp/constants"
	"github.com/sentrie-sh/saplpdp/policy"
)

var ErrConfigFileNotFound = errors.New("pdp config file not found")

// PDPConfig is the top-level PDP configuration file (pdp.toml).
type PDPConfig struct {
	CombiningAlgorithm policy.Algorithm `toml:"combining_algorithm"`
	Documents          []string         `toml:"documents"`
	Location           string           `toml:"-"`
}

// Load reads and parses root/pdp.toml (or root itself, if root already
// names the file).
func Load(root string) (*PDPConfig, error) {
	path, err := locateConfigFile(root)
	if err != nil {
		return nil, errors.Wrap(err, "locate pdp config")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read pdp config")
	}

	var cfg PDPConfig
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse pdp config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Location = filepath.Dir(path)
	return &cfg, nil
}

// Validate rejects a configuration naming an unknown combining algorithm or
// no documents at all.
func (c *PDPConfig) Validate() error {
	switch c.CombiningAlgorithm {
	case policy.PermitOverrides, policy.DenyOverrides:
	default:
		return errors.Errorf("unknown combining_algorithm %q", c.CombiningAlgorithm)
	}
	if len(c.Documents) == 0 {
		return errors.New("pdp config names no documents")
	}
	return nil
}

func locateConfigFile(root string) (string, error) {
	if len(strings.TrimSpace(root)) == 0 {
		return "", errors.New("root is empty")
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrap(err, "absolute path")
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", errors.Wrap(err, "locate pdp config")
	}
	if !info.IsDir() {
		return root, nil
	}

	candidate := filepath.Join(root, constants.ConfigFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", ErrConfigFileNotFound
}
