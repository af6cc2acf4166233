package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tubtip/tubtip/internal/pkg/config"
)

func TestCallbackURL(t *testing.T) {
	assert.Equal(t, "https://api.example.com/api/v1/auth/google/callback", CallbackURL("https://api.example.com/", "google"))
}

func TestSetup(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{PublicURL: "http://localhost:8000"}}
	assert.False(t, Setup(cfg, nil))

	cfg.OAuth = config.OAuthConfig{GoogleKey: "key", GoogleSecret: "secret"}
	assert.True(t, Setup(cfg, nil))
	assert.True(t, Enabled(ProviderGoogle))
	assert.False(t, Enabled("facebook"))
}
