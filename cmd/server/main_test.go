package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanplatform.dk/internal/config"
)

func TestRunReturnsSetupErrors(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "")
	base := func() *config.Config {
		return &config.Config{
			AppEnv:      "test",
			Storage:     config.StorageMemory,
			UploadPath:  t.TempDir(),
			Payments:    config.PaymentsConfig{Provider: "stripe"},
			Idempotency: config.IdempotencyConfig{TTLHours: 1},
			Auth:        config.AuthConfig{JWTSecret: "test-secret", TokenTTLHours: 1},
		}
	}

	t.Run("unknown payment provider", func(t *testing.T) {
		cfg := base()
		cfg.Payments.Provider = "paypal"
		err := run(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "payment gateway")
	})

	t.Run("upload path is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "uploads")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
		cfg := base()
		cfg.UploadPath = filepath.Join(file, "avatars")
		err := run(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upload directory")
	})
}
