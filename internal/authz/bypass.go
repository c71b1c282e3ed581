package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/looplj/forgehub/internal/log"
)

// bypassKey is an unexported key type to prevent external forgery.
type bypassKey struct{}

// bypassInfo stores bypass metadata.
type bypassInfo struct {
	Reason    string
	Timestamp time.Time
	Principal Principal
}

// WithBypassScopes creates a local scope-bypass context.
// Only system or test principals are allowed to call.
// reason must be a stable audit identifier (e.g., "cascade-remove", "gc-purge").
func WithBypassScopes(ctx context.Context, reason string) (context.Context, error) {
	p, ok := GetPrincipal(ctx)
	if !ok {
		return nil, fmt.Errorf("authz: WithBypassScopes requires a principal in context")
	}

	if !p.IsSystem() && !p.IsTest() {
		return nil, fmt.Errorf("authz: WithBypassScopes requires system or test principal, got %s", p.String())
	}

	info := bypassInfo{
		Reason:    reason,
		Timestamp: time.Now(),
		Principal: p,
	}

	recordBypassAudit(ctx, info)

	return context.WithValue(ctx, bypassKey{}, info), nil
}

// RunWithBypass executes a scope-bypassed operation within a closure, limiting bypass scope.
// Recommended over WithBypassScopes to prevent the bypass context from spreading
// along the call chain.
//
// Example usage:
//
//	orphans, err := authz.RunWithBypass(ctx, "cascade-remove", func(ctx context.Context) ([]entity.Record, error) {
//	    return commits.Find(ctx, entity.Filter{"repo": repoID}, entity.Options{DisableScopes: true})
//	})
func RunWithBypass[T any](ctx context.Context, reason string, fn func(ctx context.Context) (T, error)) (T, error) {
	bypassCtx, err := WithBypassScopes(ctx, reason)
	if err != nil {
		var zero T
		return zero, err
	}

	return fn(bypassCtx)
}

// GetBypassInfo retrieves current bypass information.
// Used for audit and debugging.
func GetBypassInfo(ctx context.Context) (bypassInfo, bool) {
	info, ok := ctx.Value(bypassKey{}).(bypassInfo)
	return info, ok
}

// IsBypassActive checks if current context is in bypass state.
func IsBypassActive(ctx context.Context) bool {
	_, ok := ctx.Value(bypassKey{}).(bypassInfo)
	return ok
}

// bypassAuditRecord represents a bypass audit record.
type bypassAuditRecord struct {
	Timestamp time.Time
	Principal string
	Reason    string
}

// auditLogger is the bypass audit logger.
// Can be customized via SetAuditLogger.
var auditLogger func(ctx context.Context, record bypassAuditRecord)

// SetAuditLogger sets a custom audit logger.
// If not set, the default logger is used.
func SetAuditLogger(fn func(ctx context.Context, record bypassAuditRecord)) {
	auditLogger = fn
}

func recordBypassAudit(ctx context.Context, info bypassInfo) {
	record := bypassAuditRecord{
		Timestamp: info.Timestamp,
		Principal: info.Principal.String(),
		Reason:    info.Reason,
	}

	if auditLogger != nil {
		auditLogger(ctx, record)
		return
	}

	log.Debug(ctx, "authz: scope bypass",
		log.String("principal", record.Principal),
		log.String("reason", record.Reason),
	)
}
