package bq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsZeroRescoreLimitWhenRescoring(t *testing.T) {
	cfg := Config{Rescore: true, RescoreLimit: 0}
	assert.Error(t, cfg.Validate())
}

func TestValidateAllowsZeroRescoreLimitWhenNotRescoring(t *testing.T) {
	cfg := Config{Rescore: false, RescoreLimit: 0}
	assert.NoError(t, cfg.Validate())
}

func TestClampLimitRaisesNeverLowers(t *testing.T) {
	cfg := Config{Rescore: true, RescoreLimit: 50}
	assert.Equal(t, uint64(50), cfg.ClampLimit(10))
	assert.Equal(t, uint64(100), cfg.ClampLimit(100))
}

func TestClampLimitNoopWhenRescoreDisabled(t *testing.T) {
	cfg := Config{Rescore: false, RescoreLimit: 50}
	assert.Equal(t, uint64(10), cfg.ClampLimit(10))
}
