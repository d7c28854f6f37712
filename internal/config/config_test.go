package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsTopKFinalExceedingTopKBQ(t *testing.T) {
	c := Default(WithTopKBQ(5), WithTopKFinal(10))
	assert.Error(t, c.Validate())
}

func TestValidateRejectsZeroTopKBQ(t *testing.T) {
	c := Default(WithTopKBQ(0))
	assert.Error(t, c.Validate())
}

func TestValidateRejectsZeroTopKFinal(t *testing.T) {
	c := Default(WithTopKFinal(0))
	assert.Error(t, c.Validate())
}

func TestValidateRejectsEmptyCollectionName(t *testing.T) {
	c := Default(WithCollectionName(""))
	assert.Error(t, c.Validate())
}

func TestOptionsOverrideDefaults(t *testing.T) {
	c := Default(WithTopKBQ(100), WithTopKFinal(20), WithVectorSize(768))
	assert.Equal(t, uint64(100), c.TopKBQ)
	assert.Equal(t, 20, c.TopKFinal)
	assert.Equal(t, 768, c.VectorSize)
}

func TestLoadLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "l2.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_k_final: 3\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.TopKFinal)
	assert.Equal(t, uint64(50), c.TopKBQ)
}

func TestLoadRejectsInvalidResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "l2.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_k_bq: 0\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
