package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/ilkin0/docguard/internal/logger"
	"github.com/ilkin0/docguard/internal/utils"
	"github.com/ilkin0/docguard/internal/verify"
)

// RecoverEnvelope turns a panic into the generic internal-error envelope.
// The recovered value is logged and never written to the response.
func RecoverEnvelope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.FromContext(r.Context()).Error("panic while verifying request",
				slog.String("panic", fmt.Sprint(rec)),
				slog.String("stack", string(debug.Stack())),
			)
			utils.WriteJSON(w, http.StatusInternalServerError, verify.Reject(verify.Internal()))
		}()

		next.ServeHTTP(w, r)
	})
}
