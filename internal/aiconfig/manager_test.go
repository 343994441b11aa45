package aiconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccbot/internal/constants"
	"ccbot/internal/kv"
	"ccbot/internal/logger"
	apperrors "ccbot/pkg/errors"
)

func newManager() (*Manager, *kv.MemoryStore) {
	store := kv.NewMemoryStore()
	return NewManager(store, logger.NopLogger()), store
}

func TestManager_GetDefaults(t *testing.T) {
	m, _ := newManager()
	cfg, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.False(t, cfg.Ready())
}

func TestManager_GetCorruptDocument(t *testing.T) {
	m, store := newManager()
	require.NoError(t, store.Put(context.Background(), constants.AIConfigKey, "{not json"))

	cfg, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestManager_Set(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager()

	tests := []struct {
		field string
		value string
		name  string
		want  interface{}
	}{
		{"model", "gpt-4o", FieldModel, "gpt-4o"},
		{"apikey", "sk-123", FieldAPIKey, "sk-123"},
		{"enabled", "TRUE", FieldEnabled, true},
		{"customReply", "yes", FieldCustomReply, false},
		{"customParams", `{"temperature":0.2}`, FieldCustomParams, map[string]interface{}{"temperature": 0.2}},
		{"customHeaders", `{"X-Org":"acme"}`, FieldCustomHeaders, map[string]string{"X-Org": "acme"}},
		{"responsePath", "output.text", FieldResponsePath, "output.text"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			name, parsed, err := m.Set(ctx, tt.field, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.want, parsed)
		})
	}

	cfg, err := m.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, "sk-123", cfg.APIKey)
	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.CustomReply)
	assert.Equal(t, "acme", cfg.CustomHeaders["X-Org"])
	assert.True(t, cfg.Ready())
}

func TestManager_SetRejects(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager()

	_, _, err := m.Set(ctx, "colour", "blue")
	assert.True(t, apperrors.IsValidation(err))

	_, _, err = m.Set(ctx, "customParams", "not json")
	assert.True(t, apperrors.IsValidation(err))

	cfg, err := m.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, cfg.CustomParams)
}

func TestManager_ApplyPreset(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager()
	_, _, err := m.Set(ctx, "customReply", "false")
	require.NoError(t, err)

	require.NoError(t, m.ApplyPreset(ctx, "Claude", "sk-ant"))

	cfg, err := m.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, constants.ProviderClaude, cfg.Provider)
	assert.Equal(t, "claude-3-haiku-20240307", cfg.Model)
	assert.Equal(t, "https://api.anthropic.com/v1/messages", cfg.Endpoint)
	assert.Equal(t, "sk-ant", cfg.APIKey)
	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.CustomReply, "fields outside the preset are kept")

	assert.True(t, apperrors.IsValidation(m.ApplyPreset(ctx, "llama", "k")))
}

func TestManager_Disable(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager()
	require.NoError(t, m.ApplyPreset(ctx, "openai", "sk"))
	require.NoError(t, m.Disable(ctx))

	cfg, err := m.Get(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "sk", cfg.APIKey)
}

func TestFormat(t *testing.T) {
	cfg := Defaults()
	cfg.APIKey = "sk-secret"
	out := Format(cfg)

	assert.Contains(t, out, `provider: "openai"`)
	assert.Contains(t, out, "apiKey: *********")
	assert.NotContains(t, out, "sk-secret")
	assert.Contains(t, out, "enabled: false")
	assert.NotContains(t, out, "customParams")
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "****", Mask("abcd"))
}
