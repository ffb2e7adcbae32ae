package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Registration modes. rpc calls the Supabase auth admin API and PostgREST
// functions; local keeps identities and members in the service database.
const (
	RegistrationModeRPC   = "rpc"
	RegistrationModeLocal = "local"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	SessionSecret       string
	CookieDomain        string
	DatabaseURL         string
	RunMigrations       bool
	RedisURL            string
	SupabaseURL         string // project URL, e.g. https://<ref>.supabase.co
	SupabaseSecretKey   string // service_role key, not the anon key
	SupabaseAnonKey     string // used for the password grant on login
	SupabaseAuthRPS     float64
	RegistrationMode    string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	SendinblueAPIKey    string // SENDINBLUE_API_KEY for welcome and invite emails (Brevo)
	MailFrom            string
	JoinBaseURL         string // base of the public join link sent with shared codes
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SUPABASE_AUTH_RPS", 5)
	viper.SetDefault("REGISTRATION_MODE", RegistrationModeRPC)
	viper.SetDefault("MAIL_FROM", "noreply@soilofafrica.org")
	viper.SetDefault("JOIN_BASE_URL", "https://join.soilofafrica.org")

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	cfg := &Config{
		Env:                 env,
		Port:                viper.GetString("PORT"),
		LogLevel:            strings.ToLower(viper.GetString("LOG_LEVEL")),
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		CookieDomain:        viper.GetString("COOKIE_DOMAIN"),
		DatabaseURL:         dbURL,
		RunMigrations:       viper.GetBool("RUN_MIGRATIONS"),
		RedisURL:            viper.GetString("REDIS_URL"),
		SupabaseURL:         strings.TrimRight(viper.GetString("SUPABASE_URL"), "/"),
		SupabaseSecretKey:   viper.GetString("SUPABASE_SECRET_KEY"),
		SupabaseAnonKey:     viper.GetString("SUPABASE_ANON_KEY"),
		SupabaseAuthRPS:     viper.GetFloat64("SUPABASE_AUTH_RPS"),
		RegistrationMode:    strings.ToLower(strings.TrimSpace(viper.GetString("REGISTRATION_MODE"))),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   viper.GetBool("ALLOW_CROSS_SITE_DEV"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		SendinblueAPIKey:    viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:            viper.GetString("MAIL_FROM"),
		JoinBaseURL:         strings.TrimRight(strings.TrimSpace(viper.GetString("JOIN_BASE_URL")), "/"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the router cannot wire.
func (c *Config) Validate() error {
	switch c.RegistrationMode {
	case RegistrationModeLocal:
	case RegistrationModeRPC:
		if c.SupabaseURL == "" || c.SupabaseSecretKey == "" {
			return fmt.Errorf("config: REGISTRATION_MODE=rpc requires SUPABASE_URL and SUPABASE_SECRET_KEY")
		}
	default:
		return fmt.Errorf("config: unknown REGISTRATION_MODE %q", c.RegistrationMode)
	}
	if c.SupabaseAuthRPS <= 0 {
		return fmt.Errorf("config: SUPABASE_AUTH_RPS must be positive")
	}
	return nil
}
