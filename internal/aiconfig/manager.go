package aiconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ccbot/internal/constants"
	"ccbot/internal/kv"
	"ccbot/internal/logger"
	apperrors "ccbot/pkg/errors"
)

// Manager reads and writes the Config document under constants.AIConfigKey.
// Updates are read-modify-write; concurrent admins editing at once resolve to
// the last write.
type Manager struct {
	store  kv.Store
	logger logger.Logger
}

func NewManager(store kv.Store, log logger.Logger) *Manager {
	return &Manager{store: store, logger: log}
}

// Get returns the stored configuration, or Defaults when nothing is stored or
// the stored document cannot be decoded.
func (m *Manager) Get(ctx context.Context) (Config, error) {
	raw, err := m.store.Get(ctx, constants.AIConfigKey)
	if errors.Is(err, kv.ErrNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to load AI config: %w", err)
	}

	cfg := Defaults()
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		m.logger.WarnwCtx(ctx, "Stored AI config is not valid JSON, using defaults", "error", err)
		return Defaults(), nil
	}
	return cfg, nil
}

func (m *Manager) Save(ctx context.Context, cfg Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode AI config: %w", err)
	}
	if err := m.store.Put(ctx, constants.AIConfigKey, string(raw)); err != nil {
		return fmt.Errorf("failed to save AI config: %w", err)
	}
	return nil
}

// Set parses value for field and stores it. customParams and customHeaders
// take JSON objects, enabled and customReply are true only for "true" in any
// case, and every other field takes the raw string. The canonical field name
// and the parsed value are returned.
func (m *Manager) Set(ctx context.Context, field, value string) (string, interface{}, error) {
	name, ok := CanonicalField(field)
	if !ok {
		return "", nil, apperrors.ErrValidation.WithMessage(
			fmt.Sprintf("unknown config field %q (valid: %s)", field, strings.Join(Fields(), ", ")))
	}

	cfg, err := m.Get(ctx)
	if err != nil {
		return "", nil, err
	}

	parsed, err := apply(&cfg, name, value)
	if err != nil {
		return "", nil, err
	}
	if err := m.Save(ctx, cfg); err != nil {
		return "", nil, err
	}
	return name, parsed, nil
}

func apply(cfg *Config, field, value string) (interface{}, error) {
	switch field {
	case FieldProvider:
		cfg.Provider = value
		return value, nil
	case FieldModel:
		cfg.Model = value
		return value, nil
	case FieldEndpoint:
		cfg.Endpoint = value
		return value, nil
	case FieldAPIKey:
		cfg.APIKey = value
		return value, nil
	case FieldResponsePath:
		cfg.ResponsePath = value
		return value, nil
	case FieldEnabled:
		cfg.Enabled = strings.EqualFold(value, "true")
		return cfg.Enabled, nil
	case FieldCustomReply:
		cfg.CustomReply = strings.EqualFold(value, "true")
		return cfg.CustomReply, nil
	case FieldCustomParams:
		var params map[string]interface{}
		if err := json.Unmarshal([]byte(value), &params); err != nil {
			return nil, apperrors.ErrValidation.WithMessage(
				fmt.Sprintf("customParams must be a JSON object: %v", err)).WithCause(err)
		}
		cfg.CustomParams = params
		return params, nil
	case FieldCustomHeaders:
		var headers map[string]string
		if err := json.Unmarshal([]byte(value), &headers); err != nil {
			return nil, apperrors.ErrValidation.WithMessage(
				fmt.Sprintf("customHeaders must be a JSON object of strings: %v", err)).WithCause(err)
		}
		cfg.CustomHeaders = headers
		return headers, nil
	}
	return nil, apperrors.ErrValidation.WithMessage(fmt.Sprintf("unknown config field %q", field))
}

// SetEnabled toggles the provider without touching other fields.
func (m *Manager) SetEnabled(ctx context.Context, enabled bool) error {
	cfg, err := m.Get(ctx)
	if err != nil {
		return err
	}
	cfg.Enabled = enabled
	return m.Save(ctx, cfg)
}

func (m *Manager) Disable(ctx context.Context) error {
	return m.SetEnabled(ctx, false)
}

// ApplyPreset overwrites provider, model and endpoint from the named preset,
// sets the API key and enables the provider. Other fields are kept.
func (m *Manager) ApplyPreset(ctx context.Context, name, apiKey string) error {
	preset, ok := LookupPreset(name)
	if !ok {
		return apperrors.ErrValidation.WithMessage(fmt.Sprintf("unknown preset %q", name))
	}

	cfg, err := m.Get(ctx)
	if err != nil {
		return err
	}
	cfg.Provider = preset.Provider
	cfg.Model = preset.Model
	cfg.Endpoint = preset.Endpoint
	cfg.APIKey = apiKey
	cfg.Enabled = true
	return m.Save(ctx, cfg)
}
