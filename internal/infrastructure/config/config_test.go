package config

import (
	"testing"

	"wallet-activity-stats/pkg/errors"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty explorer url", func(c *Config) { c.Explorer.BaseURL = "" }},
		{"port out of range", func(c *Config) { c.HTTP.Port = 70000 }},
		{"zero stats budget", func(c *Config) { c.HTTP.StatsBudget = 0 }},
		{"zero page size", func(c *Config) { c.Direct.PageSize = 0 }},
		{"zero cache size", func(c *Config) { c.Cache.Size = 0 }},
		{"rpc enabled without url", func(c *Config) { c.RPC.URL = "" }},
		{"mongodb enabled without uri", func(c *Config) { c.MongoDB.Enabled = true; c.MongoDB.URI = "" }},
		{"nats enabled without url", func(c *Config) { c.NATS.Enabled = true; c.NATS.URL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			assert.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration))
		})
	}
}

func TestValidate_DisabledOptionalLayers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RPC.Enabled = false
	cfg.RPC.URL = ""
	cfg.MongoDB.URI = ""
	cfg.NATS.URL = ""

	assert.NoError(t, cfg.Validate())
}

func TestNormalize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Classifier.StakingContract = "0xABCDEF"
	cfg.Classifier.GMContracts = []string{" 0xAA "}
	cfg.Classifier.DomainKeywords = []string{"ZNS"}

	cfg.normalize()

	assert.Equal(t, "0xabcdef", cfg.Classifier.StakingContract)
	assert.Equal(t, []string{"0xaa"}, cfg.Classifier.GMContracts)
	assert.Equal(t, []string{"zns"}, cfg.Classifier.DomainKeywords)
}
