package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_SampleEntities(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, check(&out, filepath.Join("..", "..", "entities")))
	assert.Equal(t, "ok: 3 entities\n", out.String())
}

func writePackage(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "entities.cue"), []byte("package entities\n"+src), 0o644))
	return dir
}

func TestCheck_ReportsProblems(t *testing.T) {
	dir := writePackage(t, `
entities: unit: {
	table: columns: [{field: "number"}]
	form: fields: [{name: "number", kind: "txt"}]
}
`)
	var out bytes.Buffer
	err := check(&out, dir)
	require.Error(t, err)
	assert.Contains(t, out.String(), "did you mean 'text'?")
}

func TestCheck_UnknownSeedEntity(t *testing.T) {
	dir := writePackage(t, `
entities: unit: table: columns: [{field: "number"}]
seed: units: [{number: "101"}]
`)
	var out bytes.Buffer
	err := check(&out, dir)
	require.Error(t, err)
	assert.Contains(t, out.String(), "seed.units")
	assert.Contains(t, out.String(), "did you mean 'unit'?")
}

func TestRootCommand_Check(t *testing.T) {
	dir, err := filepath.Abs(filepath.Join("..", "..", "entities"))
	require.NoError(t, err)
	t.Chdir(t.TempDir())

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check", "--entities", dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "ok: 3 entities")
}
