package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"BOT_TOKEN":        "123:abc",
		"AUTHORIZED_USERS": "42, 7,,",
	}))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Token)
	assert.True(t, cfg.Authorized.Allowed(42))
	assert.True(t, cfg.Authorized.Allowed(7))
	assert.False(t, cfg.Authorized.Allowed(8))
	assert.Equal(t, 2, cfg.Authorized.Len())
	assert.Equal(t, DefaultArchiveName, cfg.ArchiveName)
	assert.Equal(t, DefaultSessionTTL, cfg.SessionTTL)
	assert.EqualValues(t, DefaultMaxPartSize, cfg.MaxPartSize)
	assert.Equal(t, DefaultRetention, cfg.Retention)
	assert.False(t, cfg.UseMTProto())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"BOT_TOKEN":        "t",
		"AUTHORIZED_USERS": "-1001",
		"API_ID":           "12345",
		"API_HASH":         "deadbeef",
		"SESSION_TTL":      "0",
		"MAX_PART_SIZE":    "1024",
		"ARCHIVE_NAME":     "Out.zip",
		"LOG_LEVEL":        "debug",
		"LEDGER_RETENTION": "24h",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.UseMTProto())
	assert.Equal(t, 12345, cfg.AppID)
	assert.Equal(t, time.Duration(0), cfg.SessionTTL)
	assert.EqualValues(t, 1024, cfg.MaxPartSize)
	assert.Equal(t, "Out.zip", cfg.ArchiveName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.Retention)
	assert.True(t, cfg.Authorized.Allowed(-1001))
}

func TestFromEnv_Errors(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{"BOT_TOKEN": "t", "AUTHORIZED_USERS": "1"}
	}

	tests := []struct {
		name   string
		key    string
		value  string
		missed bool
	}{
		{name: "no token", key: "BOT_TOKEN", value: "", missed: true},
		{name: "no users", key: "AUTHORIZED_USERS", value: " ", missed: true},
		{name: "bad user id", key: "AUTHORIZED_USERS", value: "1,abc"},
		{name: "bad api id", key: "API_ID", value: "x"},
		{name: "api id without hash", key: "API_ID", value: "5", missed: true},
		{name: "bad ttl", key: "SESSION_TTL", value: "soon"},
		{name: "negative ttl", key: "SESSION_TTL", value: "-1m"},
		{name: "bad retention", key: "LEDGER_RETENTION", value: "forever"},
		{name: "zero part size", key: "MAX_PART_SIZE", value: "0"},
		{name: "archive path", key: "ARCHIVE_NAME", value: "../x.zip"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := base()
			env[tc.key] = tc.value
			_, err := FromEnv(envOf(env))
			require.Error(t, err)
			if tc.missed {
				assert.ErrorIs(t, err, ErrMissing)
			}
		})
	}
}

func TestParseAuthSet_Empty(t *testing.T) {
	_, err := ParseAuthSet(" , ")
	require.Error(t, err)
}
