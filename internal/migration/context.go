package migration

import (
	"context"
	"encoding/json"
)

// Execution methods recorded in the history table
const (
	MethodCLI        = "cli"
	MethodEntrypoint = "entrypoint"
	MethodAPI        = "api"
)

// Context keys for execution metadata
type contextKey string

const (
	executedByKey       contextKey = "executed_by"
	executionMethodKey  contextKey = "execution_method"
	executionContextKey contextKey = "execution_context"
)

// SetExecutionContext sets execution context in the context
func SetExecutionContext(ctx context.Context, executedBy, executionMethod string, executionContext map[string]interface{}) context.Context {
	ctx = context.WithValue(ctx, executedByKey, executedBy)
	ctx = context.WithValue(ctx, executionMethodKey, executionMethod)
	if executionContext != nil {
		ctxBytes, _ := json.Marshal(executionContext)
		ctx = context.WithValue(ctx, executionContextKey, string(ctxBytes))
	}
	return ctx
}

// GetExecutionContext extracts execution context from context
func GetExecutionContext(ctx context.Context) (executedBy, executionMethod, executionContext string) {
	executedBy = "system"
	executionMethod = MethodCLI

	if s, ok := ctx.Value(executedByKey).(string); ok {
		executedBy = s
	}
	if s, ok := ctx.Value(executionMethodKey).(string); ok {
		executionMethod = s
	}
	if s, ok := ctx.Value(executionContextKey).(string); ok {
		executionContext = s
	}
	return executedBy, executionMethod, executionContext
}
