package log

import (
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// toFields turns logr style arguments into zap fields. zap.Field values and
// bare errors stand alone; everything else is read as key/value pairs.
// Payload bytes are rendered as uppercase hex, the way frames are written.
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); {
		switch v := args[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			i++
			continue
		case error:
			fields = append(fields, zap.Error(v))
			i++
			continue
		}

		if i == len(args)-1 {
			fields = append(fields, zap.Any(fmt.Sprintf("arg#%d", i), args[i]))
			break
		}

		key, val := args[i], args[i+1]
		i += 2

		name, ok := key.(string)
		if !ok {
			fields = append(fields, zap.Any(fmt.Sprintf("badkey#%d", i-2), []any{key, val}))
			continue
		}
		fields = append(fields, field(name, val))
	}
	return fields
}

func field(key string, val any) zap.Field {
	if b, ok := val.([]byte); ok {
		return zap.String(key, strings.ToUpper(hex.EncodeToString(b)))
	}
	// zap.Any picks the typed constructor for primitives, durations,
	// times, errors and fmt.Stringer.
	return zap.Any(key, val)
}
