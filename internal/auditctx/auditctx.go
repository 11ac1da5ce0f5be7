// Package auditctx carries request origin details from the HTTP layer down to audit logging.
package auditctx

import "context"

// Origin describes who issued a request and from where.
type Origin struct {
	UserID    string
	IPAddress string
	UserAgent string
}

type originKey struct{}

// WithOrigin returns a derived context carrying origin.
func WithOrigin(ctx context.Context, origin Origin) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFrom returns the origin stored by WithOrigin, if any.
func OriginFrom(ctx context.Context) (Origin, bool) {
	if ctx == nil {
		return Origin{}, false
	}
	origin, ok := ctx.Value(originKey{}).(Origin)
	return origin, ok
}
