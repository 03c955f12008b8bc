package logging

import (
	"context"

	"go.viam.com/utils"
)

type fieldsKeyType int

const fieldsKeyID = fieldsKeyType(iota)

// ContextWithFields returns a context carrying key/value pairs that the C-prefixed logger methods
// prepend to every entry. Fields accumulate across nested calls.
func ContextWithFields(ctx context.Context, keysAndValues ...interface{}) context.Context {
	existing := fieldsFromContext(ctx)
	merged := make([]interface{}, 0, len(existing)+len(keysAndValues))
	merged = append(merged, existing...)
	merged = append(merged, keysAndValues...)
	return context.WithValue(ctx, fieldsKeyID, merged)
}

// WithOperationID tags the context with a short random operation id. An empty id generates one,
// unless the context already carries an operation id, which is then kept.
func WithOperationID(ctx context.Context, id string) context.Context {
	if id == "" {
		if hasField(ctx, "op") {
			return ctx
		}
		id = utils.RandomAlphaString(6)
	}
	return ContextWithFields(ctx, "op", id)
}

func hasField(ctx context.Context, key string) bool {
	fields := fieldsFromContext(ctx)
	for i := 0; i+1 < len(fields); i += 2 {
		if k, ok := fields[i].(string); ok && k == key {
			return true
		}
	}
	return false
}

func fieldsFromContext(ctx context.Context) []interface{} {
	if ctx == nil {
		return nil
	}
	if fields, ok := ctx.Value(fieldsKeyID).([]interface{}); ok {
		return fields
	}
	return nil
}
