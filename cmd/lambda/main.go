package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-chi/chi/v5"
	"github.com/ilkin0/docguard/internal/api/handlers"
	"github.com/ilkin0/docguard/internal/api/routes"
	"github.com/ilkin0/docguard/internal/lambdaproxy"
	"github.com/ilkin0/docguard/internal/logger"
	"github.com/ilkin0/docguard/internal/policy"
	"github.com/ilkin0/docguard/internal/utils"
	"github.com/ilkin0/docguard/internal/verify"
)

func main() {
	slog.SetDefault(logger.Init())

	table, err := policy.Load(utils.GetEnv("POLICY_FILE", ""))
	if err != nil {
		slog.Error("failed to load policy table",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	verifyHandler := handlers.NewVerifyHandler(verify.New(table), nil,
		utils.GetEnvInt64("MAX_REQUEST_BYTES", handlers.DefaultMaxRequestBytes))

	r := newRouter(verifyHandler, utils.GetEnv("VERIFY_PATH", "/"))

	lambda.Start(lambdaproxy.New(r))
}

// newRouter serves verification at basePath. Any other path gets the
// envelope with 404, so callers see the same shape on a misrouted stage.
func newRouter(h *handlers.VerifyHandler, basePath string) chi.Router {
	basePath = "/" + strings.Trim(basePath, "/")

	r := chi.NewRouter()
	r.Use(logger.RequestID)
	r.Use(logger.RequestLogger)
	r.NotFound(h.NotFound)
	r.Mount(basePath, routes.VerifyRoutes(h))
	return r
}
