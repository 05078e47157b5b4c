package server

import (
	"net/http"

	"github.com/glosahq/glosa/config"
)

const versionHeader = "X-Glosa-Version"

// UserIDHeader carries the authenticated principal forwarded by the gateway.
const UserIDHeader = "X-User-ID"

// SendVersion is a middleware that adds the current version to the response
func SendVersion(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if w.Header().Get(versionHeader) == "" {
			w.Header().Add(
				versionHeader,
				config.VersionString,
			)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	}
	return http.HandlerFunc(fn)
}
