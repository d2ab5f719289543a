package fingerprint

import "net/http"

// Capture is HTTP middleware that derives the device fingerprint for every
// inbound request and attaches it to the request context before any handler runs.
func Capture(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithFingerprint(r.Context(), FromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
