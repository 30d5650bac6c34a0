package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable read by Load.
const Prefix = "PORTAL_"

// Config captures environment driven configuration values for the portal.
type Config struct {
	HTTPPort       int           `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseDSN    string        `env:"DATABASE_DSN" envDefault:"file:council.db?_pragma=foreign_keys(1)"`
	JWTSecret      string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	CookieSecure   bool          `env:"COOKIE_SECURE" envDefault:"true"`
	UploadDir      string        `env:"UPLOAD_DIR" envDefault:"public/uploads"`
	PublicURL      string        `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	RecentSessions int           `env:"RECENT_SESSIONS" envDefault:"5"`
	SMTP           SMTPConfig
}

// SMTPConfig describes the outbound mail relay. Delivery is disabled while
// Host or From is empty.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
	UseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`
}

// Load reads an optional .env file from the working directory, then parses
// the process environment. Variables already set take precedence over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("lecture du fichier .env impossible: %w", err)
	}
	return Parse()
}

// Parse reads configuration from the process environment only.
//
// Defaults apply to optional fields; missing required values and malformed
// values are reported with localized messages naming the variables.
func Parse() (Config, error) {
	var cfg Config
	err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix})

	missing, invalid := classify(err)
	if err != nil && len(missing) == 0 && len(invalid) == 0 {
		return Config{}, fmt.Errorf("configuration illisible: %w", err)
	}
	if len(missing) == 0 {
		invalid = append(invalid, cfg.validate()...)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("variables d'environnement obligatoires manquantes: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return Config{}, fmt.Errorf("valeur invalide pour les variables d'environnement: %s", strings.Join(dedupe(invalid), ", "))
	}

	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return cfg, nil
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Addr returns the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func (c Config) validate() []string {
	var invalid []string
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, Prefix+"HTTP_PORT")
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		invalid = append(invalid, Prefix+"DATABASE_DSN")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		invalid = append(invalid, Prefix+"JWT_SECRET")
	}
	if c.TokenTTL <= 0 {
		invalid = append(invalid, Prefix+"TOKEN_TTL")
	}
	if c.RecentSessions <= 0 {
		invalid = append(invalid, Prefix+"RECENT_SESSIONS")
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		invalid = append(invalid, Prefix+"SMTP_PORT")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		invalid = append(invalid, Prefix+"LOG_LEVEL")
	}
	return invalid
}

// classify splits env parsing failures into missing and invalid variable names.
func classify(err error) (missing, invalid []string) {
	if err == nil {
		return nil, nil
	}

	var errs []error
	var agg env.AggregateError
	var aggPtr *env.AggregateError
	switch {
	case errors.As(err, &agg):
		errs = agg.Errors
	case errors.As(err, &aggPtr):
		errs = aggPtr.Errors
	default:
		errs = []error{err}
	}

	for _, e := range errs {
		var notSet env.EnvVarIsNotSetError
		var empty env.EmptyVarError
		var parse env.ParseError
		switch {
		case errors.As(e, &notSet):
			missing = append(missing, notSet.Key)
		case errors.As(e, &empty):
			missing = append(missing, empty.Key)
		case errors.As(e, &parse):
			invalid = append(invalid, envKey(parse.Name))
		}
	}
	return missing, invalid
}

// envKey resolves the prefixed variable name of a Config or SMTPConfig field.
func envKey(field string) string {
	for _, t := range []reflect.Type{reflect.TypeOf(Config{}), reflect.TypeOf(SMTPConfig{})} {
		if f, ok := t.FieldByName(field); ok {
			if tag := f.Tag.Get("env"); tag != "" {
				return Prefix + strings.Split(tag, ",")[0]
			}
		}
	}
	return field
}

func dedupe(values []string) []string {
	out := values[:0]
	for i, v := range values {
		if i > 0 && values[i-1] == v {
			continue
		}
		out = append(out, v)
	}
	return out
}
