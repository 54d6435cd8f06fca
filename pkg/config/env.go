package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIKey        = "OPENAI_API_KEY"
	EnvBaseURL       = "OPENAI_BASE_URL"
	EnvModel         = "WEBPILOT_MODEL"
	EnvHeadless      = "WEBPILOT_HEADLESS"
	EnvBrowserType   = "WEBPILOT_BROWSER"
	EnvMaxConcurrent = "WEBPILOT_MAX_CONCURRENT"
	EnvAdmission     = "WEBPILOT_ADMISSION"
	EnvServerAddr    = "WEBPILOT_ADDR"
	EnvLogLevel      = "WEBPILOT_LOG_LEVEL"
	EnvStepDelay     = "WEBPILOT_STEP_DELAY"
)

// ApplyEnv overlays environment variables onto c. Unset variables are ignored.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str(EnvAPIKey, &c.LLM.APIKey)
	str(EnvBaseURL, &c.LLM.BaseURL)
	str(EnvModel, &c.LLM.Model)
	str(EnvBrowserType, &c.Browser.Type)
	str(EnvAdmission, &c.Tasks.Admission)
	str(EnvServerAddr, &c.Server.Addr)
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	if v, ok := lookup(EnvHeadless); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.Browser.Headless = b
	}
	if v, ok := lookup(EnvMaxConcurrent); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxConcurrent, err)
		}
		c.Tasks.MaxConcurrent = n
	}
	if v, ok := lookup(EnvStepDelay); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvStepDelay, err)
		}
		c.Agent.StepDelay = d
	}
	return nil
}

// LoadDotEnv loads a .env file into the process environment. Variables that
// are already set win over the file, and a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
