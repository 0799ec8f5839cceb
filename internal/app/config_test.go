package app

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("AUTHZ_JWT_SECRET", "jwt-s3cret")
	unsetenv(t, "SESSION_STORE", "CAPTCHA_POLICY", "RECAPTCHA_SECRET", "SESSION_TTL", "AUDIT_RETENTION")
}

// unsetenv clears keys for the duration of the test.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)
	unsetenv(t, "SESSION_COOKIE", "SESSION_ALLOW_PENDING")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 30*time.Minute, cfg.SessionTTL)
	require.Equal(t, "_gatehouse_session", cfg.SessionCookie)
	require.Equal(t, SessionStoreRedis, cfg.SessionStore)
	require.Equal(t, CaptchaDisabled, cfg.CaptchaPolicy)
	require.True(t, cfg.SessionAllowPending)
	require.Equal(t, 90*24*time.Hour, cfg.AuditRetention)
}

func TestLoadConfigNormalizesChoices(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_STORE", " Memory ")
	t.Setenv("CAPTCHA_POLICY", "RECAPTCHA")
	t.Setenv("RECAPTCHA_SECRET", "captcha-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, SessionStoreMemory, cfg.SessionStore)
	require.Equal(t, CaptchaRecaptcha, cfg.CaptchaPolicy)
}

func TestLoadConfigRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"missing session secret": {"SESSION_SECRET": ""},
		"missing jwt secret":     {"AUTHZ_JWT_SECRET": ""},
		"unknown store":          {"SESSION_STORE": "dynamo"},
		"unknown captcha":        {"CAPTCHA_POLICY": "hcaptcha"},
		"recaptcha no secret":    {"CAPTCHA_POLICY": "recaptcha", "RECAPTCHA_SECRET": ""},
		"zero ttl":               {"SESSION_TTL": "0s"},
		"negative retention":     {"AUDIT_RETENTION": "-1h"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestIsProduction(t *testing.T) {
	var nilCfg *Config
	require.False(t, nilCfg.IsProduction())
	require.True(t, (&Config{AppEnv: "production"}).IsProduction())
}
