package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the log key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the log key for the model identifier.
	FieldModel = "ai_model"

	// FieldEventID is the log key for the dispatched event id, which is also the step run id.
	FieldEventID   = "event_id"
	FieldEventName = "event_name"
	// FieldAttempt counts deliveries of the same event, starting at zero.
	FieldAttempt = "attempt"
)

// ProviderGemini is the provider name attached to every Gemini call log.
const ProviderGemini = "gemini"

// StringField is a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, trimming whitespace and
// skipping entries with an empty key or value.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	logger = OrNop(logger)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// CommonFields describes the AI provider and model of a call. Empty values are left out.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields attaches CommonFields to logger, or to a no-op logger when nil.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// EventFields describes one delivery of a dispatched event.
func EventFields(id, name string, attempt int) []zap.Field {
	fields := StringFields(
		StringField{Key: FieldEventID, Value: id},
		StringField{Key: FieldEventName, Value: name},
	)
	return append(fields, zap.Int(FieldAttempt, attempt))
}
