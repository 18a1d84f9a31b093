package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/ilkin0/docguard/internal/logger"
	"github.com/ilkin0/docguard/internal/utils"
	"github.com/ilkin0/docguard/internal/verify"
)

const rateLimitMessage = "Rate limit exceeded. Please try again later."

type RateLimitConfig struct {
	VerifyLimit    int
	DocumentsLimit int
	TimeWindow     time.Duration
}

func LoadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		VerifyLimit:    utils.GetEnvInt("RATE_LIMIT_VERIFY", 60),
		DocumentsLimit: utils.GetEnvInt("RATE_LIMIT_DOCUMENTS", 20),
		TimeWindow: time.
			Duration(utils.GetEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
	}
}

var config = LoadRateLimitConfig()

func ReloadConfig() {
	config = LoadRateLimitConfig()
}

// VerifyLimiter answers with the verification envelope so callers can keep
// branching on valid.
func VerifyLimiter() func(http.Handler) http.Handler {
	return createLimiter(config.VerifyLimit, func(w http.ResponseWriter) {
		utils.WriteJSON(w, http.StatusTooManyRequests, verify.Result{Valid: false, Error: rateLimitMessage})
	})
}

func DocumentsLimiter() func(http.Handler) http.Handler {
	return createLimiter(config.DocumentsLimit, func(w http.ResponseWriter) {
		utils.Error(w, http.StatusTooManyRequests, rateLimitMessage)
	})
}

func createLimiter(limit int, write func(http.ResponseWriter)) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		config.TimeWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitExceededHandler(config.TimeWindow, write)),
	)
}

func rateLimitExceededHandler(retryAfter time.Duration, write func(http.ResponseWriter)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Warn("rate limit exceeded",
			slog.String("ip", r.RemoteAddr),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("user_agent", r.UserAgent()),
		)

		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		write(w)
	}
}
