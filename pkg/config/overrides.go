package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidOverrides is returned when an override bag cannot be applied.
var ErrInvalidOverrides = errors.New("invalid overrides")

type setter func(s *Settings, value string) error

func stringSetter(field func(s *Settings) *string) setter {
	return func(s *Settings, value string) error {
		*field(s) = value

		return nil
	}
}

var overrideSetters = map[string]setter{
	"DATA_DB_TYPE":     stringSetter(func(s *Settings) *string { return &s.Data.Type }),
	"DATA_HOST":        stringSetter(func(s *Settings) *string { return &s.Data.Host }),
	"DATA_PORT":        stringSetter(func(s *Settings) *string { return &s.Data.Port }),
	"DATA_NAME":        stringSetter(func(s *Settings) *string { return &s.Data.Name }),
	"DATA_USER":        stringSetter(func(s *Settings) *string { return &s.Data.User }),
	"DATA_PASSWORD":    stringSetter(func(s *Settings) *string { return &s.Data.Password }),
	"DATA_TABLE":       stringSetter(func(s *Settings) *string { return &s.Data.Table }),
	"DATA_DSN":         stringSetter(func(s *Settings) *string { return &s.Data.DSN }),
	"DATA_SSLMODE":     stringSetter(func(s *Settings) *string { return &s.Data.SSLMode }),
	"EMAIL_FROM":       stringSetter(func(s *Settings) *string { return &s.Mail.From }),
	"EMAIL_TO":         stringSetter(func(s *Settings) *string { return &s.Mail.To }),
	"SENDGRID_API_KEY": stringSetter(func(s *Settings) *string { return &s.Mail.APIKey }),
	"GEMINI_API_KEY":   stringSetter(func(s *Settings) *string { return &s.LLM.APIKey }),
	"LLM_MODEL":        stringSetter(func(s *Settings) *string { return &s.LLM.Model }),
	"EXPORT_XLSX": func(s *Settings, value string) error {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("EXPORT_XLSX: %w", err)
		}

		s.ExportXLSX = enabled

		return nil
	},
}

var overrideSchema = map[string]any{
	"type": "object",
	"additionalProperties": map[string]any{
		"type": []any{"string", "number", "boolean", "null"},
	},
}

// OverrideKeys lists the keys accepted by WithOverrides.
func OverrideKeys() []string {
	keys := make([]string, 0, len(overrideSetters))
	for key := range overrideSetters {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// WithOverrides returns a copy of s with the recognized keys of overrides
// applied. Unknown keys are ignored; values must be scalars.
func (s Settings) WithOverrides(overrides map[string]any) (Settings, error) {
	if len(overrides) == 0 {
		return s, nil
	}

	err := validateOverrides(overrides)
	if err != nil {
		return s, err
	}

	out := s

	for key, raw := range overrides {
		set, ok := overrideSetters[strings.ToUpper(key)]
		if !ok || raw == nil {
			continue
		}

		err := set(&out, fmt.Sprint(raw))
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrInvalidOverrides, err)
		}
	}

	err = out.Validate()
	if err != nil {
		return s, fmt.Errorf("%w: %w", ErrInvalidOverrides, err)
	}

	return out, nil
}

func validateOverrides(overrides map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(overrideSchema),
		gojsonschema.NewGoLoader(overrides),
	)
	if err != nil {
		return fmt.Errorf("failed to validate overrides: %w", err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, resultErr.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidOverrides, strings.Join(messages, "; "))
	}

	return nil
}
