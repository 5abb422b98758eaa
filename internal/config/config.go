package config // package config loads application configuration from environment variables

import (
    "errors"
    "fmt"
    "net/http"
    "os"
    "strconv"

    "github.com/joho/godotenv"
)

// DefaultServiceName is reported by /health when SERVICE_NAME is unset.
const DefaultServiceName = "java-springboot-app"

// DefaultPort is the listen port used when PORT is unset.
const DefaultPort = 8080

// ErrMissingRegion is returned by Load when neither AWS_REGION nor
// AWS_DEFAULT_REGION is set.  The storage client cannot be addressed
// without a region, so startup must stop here.
var ErrMissingRegion = errors.New("missing required env var: AWS_REGION")

// Config holds all runtime configuration values.  It is resolved once at
// startup and passed by value to the constructors that need it; nothing
// reads the environment at request time.
type Config struct {
    Env                string // application environment (e.g. "dev", "prod")
    ServiceName        string // name reported by the health endpoint
    Port               int    // HTTP port to listen on
    Region             string // AWS region used to build the storage client
    S3Endpoint         string // optional S3-compatible endpoint override
    S3UsePathStyle     bool   // address buckets as path segments instead of subdomains
    BucketsErrorStatus int    // HTTP status written when listing buckets fails
    JWTSecret          string // secret for protected endpoints (empty disables auth)
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
    return ":" + strconv.Itoa(c.Port)
}

// Load reads configuration from the environment.  A .env file in the
// working directory is applied first when present; variables already set
// in the process environment take precedence over it.
func Load() (Config, error) {
    // godotenv.Load never overrides existing variables; a missing file is fine.
    if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
        return Config{}, fmt.Errorf("load .env: %w", err)
    }
    return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (Config, error) {
    region := firstEnv("AWS_REGION", "AWS_DEFAULT_REGION")
    if region == "" {
        return Config{}, ErrMissingRegion
    }

    port, err := parsePort(getenv("PORT", strconv.Itoa(DefaultPort)))
    if err != nil {
        return Config{}, err
    }

    errStatus, err := parseErrorStatus(getenv("BUCKETS_ERROR_STATUS", strconv.Itoa(http.StatusOK)))
    if err != nil {
        return Config{}, err
    }

    return Config{
        Env:                getenv("APP_ENV", "dev"),
        ServiceName:        getenv("SERVICE_NAME", DefaultServiceName),
        Port:               port,
        Region:             region,
        S3Endpoint:         os.Getenv("S3_ENDPOINT"),
        S3UsePathStyle:     envBool("S3_USE_PATH_STYLE", false),
        BucketsErrorStatus: errStatus,
        JWTSecret:          os.Getenv("JWT_SECRET"),
    }, nil
}

// parsePort converts s into a TCP port number.
func parsePort(s string) (int, error) {
    n, err := strconv.Atoi(s)
    if err != nil || n < 1 || n > 65535 {
        return 0, fmt.Errorf("invalid PORT: %q", s)
    }
    return n, nil
}

// parseErrorStatus accepts 200 or a 4xx/5xx code.  Other statuses either
// forbid a response body (1xx, 204, 304) or would read as success, and the
// failure body is the only thing that tells callers the listing failed.
func parseErrorStatus(s string) (int, error) {
    n, err := strconv.Atoi(s)
    if err != nil || (n != http.StatusOK && (n < 400 || n > 599)) {
        return 0, fmt.Errorf("invalid BUCKETS_ERROR_STATUS: %q (want 200 or 400..599)", s)
    }
    return n, nil
}

func firstEnv(keys ...string) string {
    for _, k := range keys {
        if v := os.Getenv(k); v != "" {
            return v
        }
    }
    return ""
}
