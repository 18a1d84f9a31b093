package client

import (
	"strings"
	"time"

	"github.com/ilkin0/docguard/internal/utils"
	"github.com/ilkin0/docguard/internal/verify"
)

const DefaultTimeout = 10 * time.Second

type Config struct {
	// ServiceURL is the verification endpoint. Empty means the service is not
	// deployed and every call goes to the local fallback.
	ServiceURL string
	Mode       verify.Mode
	Timeout    time.Duration
	APIKey     string
}

func LoadConfig() Config {
	mode := verify.Mode(strings.ToLower(utils.GetEnv("VERIFY_MODE", string(verify.ModeContent))))
	if mode != verify.ModeMetadata {
		mode = verify.ModeContent
	}

	return Config{
		ServiceURL: utils.GetEnv("VERIFY_SERVICE_URL", ""),
		Mode:       mode,
		Timeout:    utils.GetEnvSeconds("VERIFY_TIMEOUT_SECONDS", DefaultTimeout),
		APIKey:     utils.GetEnv("VERIFY_API_KEY", ""),
	}
}
