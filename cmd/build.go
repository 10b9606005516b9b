// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"path/filepath"

	"github.com/sentrie-sh/saplpdp/attribute"
	"github.com/sentrie-sh/saplpdp/compiler"
	"github.com/sentrie-sh/saplpdp/config"
	"github.com/sentrie-sh/saplpdp/pdp"
	"github.com/sentrie-sh/saplpdp/repository"
	"github.com/sentrie-sh/saplpdp/sourcedoc"
)

// buildPDP loads a configuration's documents and compiles them into a PDP,
// wired against a fresh attribute repository/broker pair.
func buildPDP(ctx context.Context, configLocation string) (*pdp.PDP, *compiler.CompilationContext, error) {
	cfg, err := config.Load(configLocation)
	if err != nil {
		return nil, nil, err
	}

	paths := make([]string, len(cfg.Documents))
	for i, d := range cfg.Documents {
		if filepath.IsAbs(d) {
			paths[i] = d
		} else {
			paths[i] = filepath.Join(cfg.Location, d)
		}
	}

	docs, err := sourcedoc.LoadAll(paths)
	if err != nil {
		return nil, nil, err
	}

	repo := repository.New()
	broker := attribute.New(repo)
	cc := &compiler.CompilationContext{AttributeBroker: broker}

	instance, err := pdp.New(cc, cfg.CombiningAlgorithm, docs)
	if err != nil {
		return nil, nil, err
	}
	return instance, cc, nil
}
