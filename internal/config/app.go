package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // BILLING_TIMEZONE must resolve in slim containers
)

// AppConfig holds process level settings
type AppConfig struct {
	ServerPort         string
	UploadsDir         string
	JWTSecret          string
	JWTExpirationHours int64
	LogLevel           string
	LogFormat          string
	GinMode            string
	InitialAdminPhone  string
	// Statement dates and "today" are evaluated in this zone.
	BillingLocation *time.Location
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// LoadAppConfig loads application configuration from environment variables
func LoadAppConfig() (*AppConfig, error) {
	jwtSecret := os.Getenv("JWT_SECRET_KEY")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY not set in environment")
	}

	jwtExpHours, err := strconv.ParseInt(getenv("JWT_EXPIRATION_HOURS", "24"), 10, 64)
	if err != nil || jwtExpHours <= 0 {
		jwtExpHours = 24
	}

	tz := getenv("BILLING_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid BILLING_TIMEZONE %q: %w", tz, err)
	}

	return &AppConfig{
		ServerPort:         getenv("SERVER_PORT", "8080"),
		UploadsDir:         getenv("UPLOADS_DIR", "uploads"),
		JWTSecret:          jwtSecret,
		JWTExpirationHours: jwtExpHours,
		LogLevel:           getenv("LOG_LEVEL", "info"),
		LogFormat:          getenv("LOG_FORMAT", "console"),
		GinMode:            getenv("GIN_MODE", "debug"),
		InitialAdminPhone:  os.Getenv("INITIAL_ADMIN_PHONE"),
		BillingLocation:    loc,
	}, nil
}
