// SPDX-License-Identifier: Apache-2.0
package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrie-sh/saplpdp/config"
	"github.com/sentrie-sh/saplpdp/policy"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pdp.toml"), []byte(body), 0o644))
}

func TestLoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
combining_algorithm = "permit-overrides"
documents = ["policies/a.sapl", "policies/b.sapl"]
`)
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, policy.PermitOverrides, cfg.CombiningAlgorithm)
	assert.Equal(t, []string{"policies/a.sapl", "policies/b.sapl"}, cfg.Documents)
}

func TestLoadRejectsUnknownAlgorithm(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
combining_algorithm = "first-applicable"
documents = ["a.sapl"]
`)
	_, err := config.Load(dir)
	assert.Error(t, err)
}

func TestLoadRejectsNoDocuments(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
combining_algorithm = "deny-overrides"
documents = []
`)
	_, err := config.Load(dir)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := config.Load(dir)
	assert.ErrorIs(t, err, config.ErrConfigFileNotFound)
}
