package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/web/response"
)

// Recovery creates a middleware that turns a panic into a 500 response
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.Error("panic recovered",
						zap.String("request_id", GetRequestID(r.Context())),
						zap.String("path", r.URL.Path),
						zap.Error(fmt.Errorf("%v", v)),
						zap.Stack("stack"))
					response.RenderInternalError(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
