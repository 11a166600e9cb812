package auth

import "context"

type contextKey string

const (
	contextKeySystem  contextKey = "auth.system_id"
	contextKeyRole    contextKey = "auth.role"
	contextKeySubject contextKey = "auth.subject"
)

// WithIdentity stores token identity in context.
func WithIdentity(ctx context.Context, systemID string, role Role, subject string) context.Context {
	ctx = context.WithValue(ctx, contextKeySystem, systemID)
	ctx = context.WithValue(ctx, contextKeyRole, role)
	return context.WithValue(ctx, contextKeySubject, subject)
}

// SystemIDFromContext returns the system bound to the token, if any.
func SystemIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(contextKeySystem).(string); ok {
		return id
	}
	return ""
}

// RoleFromContext returns the caller role.
func RoleFromContext(ctx context.Context) Role {
	if ctx == nil {
		return ""
	}
	if role, ok := ctx.Value(contextKeyRole).(Role); ok {
		return role
	}
	return ""
}

// SubjectFromContext returns the token subject.
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if subject, ok := ctx.Value(contextKeySubject).(string); ok {
		return subject
	}
	return ""
}

// ResolveSystemID returns the system a request may act on. The token's
// system wins; an explicit request value must match it.
func ResolveSystemID(ctx context.Context, requested string) (string, error) {
	bound := SystemIDFromContext(ctx)
	if bound == "" {
		return requested, nil
	}
	if requested != "" && requested != bound {
		return "", ErrSystemMismatch
	}
	return bound, nil
}
