package fingerprint

import "context"

type contextKey struct{ name string }

var fingerprintKey = contextKey{"fingerprint"}

// WithFingerprint returns a context carrying fp. Downstream consumers (login,
// session validation, audit) read it via FromContext.
func WithFingerprint(ctx context.Context, fp Fingerprint) context.Context {
	return context.WithValue(ctx, fingerprintKey, fp)
}

// FromContext returns the fingerprint captured for this request and true if
// set; otherwise a zero Fingerprint and false.
func FromContext(ctx context.Context) (Fingerprint, bool) {
	fp, ok := ctx.Value(fingerprintKey).(Fingerprint)
	return fp, ok
}
