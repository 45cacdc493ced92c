package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RedactedValue подставляется вместо значений чувствительных полей.
const RedactedValue = "[redacted]"

// Ключи полей, значения которых никогда не попадают в лог.
var redactedKeys = map[string]struct{}{
	"email":         {},
	"recipient":     {},
	"to":            {},
	"token":         {},
	"owner_token":   {},
	"authorization": {},
	"cookie":        {},
	"items":         {},
	"text":          {},
}

// redactingCore скрывает значения чувствительных полей перед записью.
type redactingCore struct {
	zapcore.Core
}

// NewRedactingCore оборачивает core так, что поля email, токенов и текста заметок
// заменяются на RedactedValue.
func NewRedactingCore(core zapcore.Core) zapcore.Core {
	return &redactingCore{Core: core}
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{Core: c.Core.With(redact(fields))}
}

func (c *redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, redact(fields))
}

// IsRedactedKey сообщает, скрывается ли поле с таким именем.
func IsRedactedKey(key string) bool {
	_, ok := redactedKeys[strings.ToLower(key)]
	return ok
}

func redact(fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		if !IsRedactedKey(f.Key) {
			continue
		}
		if out == nil {
			out = make([]zapcore.Field, len(fields))
			copy(out, fields)
		}
		out[i] = zap.String(f.Key, RedactedValue)
	}
	if out == nil {
		return fields
	}
	return out
}
