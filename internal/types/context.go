package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID     ContextKey = "ctx_request_id"
	CtxUserID        ContextKey = "ctx_user_id"
	CtxRole          ContextKey = "ctx_role"
	CtxDBTransaction ContextKey = "ctx_db_transaction"

	// DefaultUserID is used as the actor for writes triggered by the system
	// (webhooks, background sweeps) rather than by an admin.
	DefaultUserID = "system"
)

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func GetRole(ctx context.Context) string {
	if role, ok := ctx.Value(CtxRole).(string); ok {
		return role
	}
	return ""
}

// SetUserID sets the user ID in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

// SetRole sets the role of the authenticated principal in the context
func SetRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, CtxRole, role)
}

// SetRequestID sets the request ID in the context
func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}
