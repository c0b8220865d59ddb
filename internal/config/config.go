package config // package config loads application configuration from environment variables

import (
    "log"  // log is used to report configuration errors and halt execution
    "os"   // os provides access to environment variables
    "time" // time parses the timeout knobs of the auth layer

    "github.com/joho/godotenv" // godotenv loads a local .env file in development
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The identity provider URL and API key are the
// only credentials this service carries; user passwords never touch disk here.
type Config struct {
    Env    string // application environment (e.g. "dev", "prod")
    Port   string // HTTP port to listen on
    DBUser string // database username
    DBPass string // database password (optional)
    DBHost string // database host address
    DBPort string // database port number
    DBName string // database name

    ProviderURL string // base URL of the external identity provider
    ProviderKey string // API key sent with every identity provider request

    RoleResolveTimeout time.Duration // budget for a single role-store lookup
    LoginTimeout       time.Duration // budget for the primary sign-in path before the fallback kicks in
    SessionTTL         time.Duration // idle lifetime of an admin session
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file is honoured when present so local development does not
// need exported variables.  Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message; in
// particular a missing identity provider URL or key is fatal at startup
// rather than a recoverable runtime error.
func Load() Config {
    _ = godotenv.Load() // absence of .env is fine; real env always wins

    return Config{
        Env:    must("APP_ENV"),      // environment (dev/test/prod)
        Port:   must("APP_PORT"),     // port to bind the HTTP server
        DBUser: must("DB_USER"),      // database user
        DBPass: os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost: must("DB_HOST"),      // database host
        DBPort: must("DB_PORT"),      // database port
        DBName: must("DB_NAME"),      // database name

        ProviderURL: must("SUPABASE_URL"),      // identity provider base URL
        ProviderKey: must("SUPABASE_ANON_KEY"), // identity provider API key

        RoleResolveTimeout: dur("AUTH_ROLE_TIMEOUT", 2*time.Second),  // role lookup race budget
        LoginTimeout:       dur("AUTH_LOGIN_TIMEOUT", 5*time.Second), // primary sign-in race budget
        SessionTTL:         dur("ADMIN_SESSION_TTL", 12*time.Hour),   // admin session idle expiry
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// dur reads a duration-valued variable, falling back to the given default
// when the variable is unset.  An unparsable value is fatal because a silent
// fallback here would quietly change the auth timing behaviour.
func dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    d, err := time.ParseDuration(v)
    if err != nil {
        log.Fatalf("invalid duration for %s: %q (use Go format: 2s, 500ms)", key, v)
    }
    return d
}
