// Package config provides configuration loading for the dpctl command.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/nucleus/dp-connector/pkg/donorperfect"
)

// ClientConfig holds DonorPerfect client and export settings.
type ClientConfig struct {
	// Endpoint settings
	BaseURL string `env:"DP_BASE_URL" validate:"omitempty,url"`
	AppName string `env:"DP_APP_NAME" validate:"max=20"`

	// Credentials: either an API key or a login/password pair
	APIKey   string `env:"DP_API_KEY" validate:"required_without=Login,excluded_with=Login"`
	Login    string `env:"DP_LOGIN" validate:"required_with=Password"`
	Password string `env:"DP_PASSWORD" validate:"required_with=Login"`

	// Paging and rate limiting
	PageSize    int     `env:"DP_PAGE_SIZE" validate:"min=1,max=5000"`
	RateLimit   float64 `env:"DP_RATE_LIMIT" validate:"gt=0"`
	RateBurst   int     `env:"DP_RATE_BURST" validate:"min=1"`
	TimeoutSecs int     `env:"DP_TIMEOUT_SECS" validate:"min=1"`

	// CatalogFile replaces the built-in procedure catalog when set.
	CatalogFile string `env:"DP_CATALOG_FILE" validate:"omitempty,file"`

	// SinkDSN is the default export destination.
	SinkDSN string `env:"DP_SINK_DSN" validate:"omitempty,url"`
}

// LoadClientConfig loads configuration from environment. Variables from
// envFile are added first without overriding the process environment; an
// empty envFile reads .env when present.
func LoadClientConfig(envFile string) (*ClientConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &ClientConfig{
		BaseURL:     getEnv("DP_BASE_URL", donorperfect.DefaultBaseURL),
		AppName:     getEnv("DP_APP_NAME", donorperfect.DefaultAppName),
		APIKey:      getEnv("DP_API_KEY", ""),
		Login:       getEnv("DP_LOGIN", ""),
		Password:    getEnv("DP_PASSWORD", ""),
		PageSize:    getEnvInt("DP_PAGE_SIZE", donorperfect.DefaultPageSize),
		RateLimit:   getEnvFloat("DP_RATE_LIMIT", 5),
		RateBurst:   getEnvInt("DP_RATE_BURST", 2),
		TimeoutSecs: getEnvInt("DP_TIMEOUT_SECS", 60),
		CatalogFile: getEnv("DP_CATALOG_FILE", ""),
		SinkDSN:     getEnv("DP_SINK_DSN", ""),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration, reporting fields by variable name.
func (c *ClientConfig) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), describe(fe)))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// DonorPerfect converts the settings into a client configuration.
func (c *ClientConfig) DonorPerfect() *donorperfect.Config {
	return &donorperfect.Config{
		BaseURL:   c.BaseURL,
		APIKey:    c.APIKey,
		Login:     c.Login,
		Password:  c.Password,
		AppName:   c.AppName,
		PageSize:  c.PageSize,
		RateLimit: c.RateLimit,
		RateBurst: c.RateBurst,
		Timeout:   time.Duration(c.TimeoutSecs) * time.Second,
	}
}

func describe(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

var (
	validatorInstance *validator.Validate
	validatorOnce     sync.Once
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInstance = validator.New()
		validatorInstance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return fld.Tag.Get("env")
		})
	})
	return validatorInstance
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
