// Command docguard checks local files against the upload policy.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ilkin0/docguard/internal/logger"
	"github.com/ilkin0/docguard/internal/utils"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(logger.NewWithWriter(os.Stderr,
		utils.GetEnv("APP_ENV", "development"),
		utils.GetEnv("LOG_LEVEL", "warn"),
	))

	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
