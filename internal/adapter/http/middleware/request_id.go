package middleware

import (
	"net/http"

	wrap "github.com/Kwendataxi/kwenda-sub010/pkg/logger/wrapper"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestID takes the caller's request id or mints one, echoes it in the
// response, and threads it through the log context.
func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := wrap.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
