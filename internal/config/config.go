package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseURL         string        `envconfig:"DATABASE_URL"`
	DatabaseMaxConns    int32         `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMinConns    int32         `envconfig:"DATABASE_MIN_CONNS" default:"1"`
	DatabaseMaxConnLife time.Duration `envconfig:"DATABASE_MAX_CONN_LIFE" default:"1h"`
	DatabaseCreate      bool          `envconfig:"DATABASE_CREATE" default:"true"`

	// Credenciais separadas, usadas quando DATABASE_URL está vazio.
	PGUser     string `envconfig:"PGUSER" default:"postgres"`
	PGPassword string `envconfig:"PGPASSWORD"`
	PGHost     string `envconfig:"PGHOST" default:"localhost"`
	PGPort     int    `envconfig:"PGPORT" default:"5432"`
	PGDatabase string `envconfig:"PGDATABASE" default:"nft_ledger"`
	PGSSLMode  string `envconfig:"PGSSLMODE" default:"prefer"`

	RedisURL string        `envconfig:"REDIS_URL"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"1h"`

	BatchSize int `envconfig:"BATCH_SIZE" default:"1000"`
	Workers   int `envconfig:"WORKERS" default:"4"`

	StartingBalance string `envconfig:"STARTING_BALANCE" default:"1000"`
	Currency        string `envconfig:"CURRENCY" default:"USD"`

	ChartWidth  int `envconfig:"CHART_WIDTH" default:"900"`
	ChartHeight int `envconfig:"CHART_HEIGHT" default:"320"`

	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"true"`
	MetricsTextfile string `envconfig:"METRICS_TEXTFILE"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

// LoadFromEnv processes the environment and validates the result.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("erro ao ler variáveis de ambiente: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuração inválida: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		if c.PGHost == "" {
			return errors.New("PGHOST é obrigatório quando DATABASE_URL não está definido")
		}
		if c.PGDatabase == "" {
			return errors.New("PGDATABASE é obrigatório quando DATABASE_URL não está definido")
		}
		if c.PGUser == "" {
			return errors.New("PGUSER é obrigatório quando DATABASE_URL não está definido")
		}
		if c.PGPort < 1 || c.PGPort > 65535 {
			return fmt.Errorf("PGPORT deve estar entre 1 e 65535, recebido %d", c.PGPort)
		}
	}
	if c.DatabaseMaxConns < 1 {
		return errors.New("DATABASE_MAX_CONNS deve ser >= 1")
	}
	if c.DatabaseMinConns < 0 {
		return errors.New("DATABASE_MIN_CONNS deve ser >= 0")
	}
	if c.DatabaseMinConns > c.DatabaseMaxConns {
		return fmt.Errorf("DATABASE_MIN_CONNS (%d) não pode exceder DATABASE_MAX_CONNS (%d)",
			c.DatabaseMinConns, c.DatabaseMaxConns)
	}
	if c.BatchSize < 1 {
		return errors.New("BATCH_SIZE deve ser >= 1")
	}
	if c.Workers < 1 {
		return errors.New("WORKERS deve ser >= 1")
	}
	if _, err := c.StartingBalanceDecimal(); err != nil {
		return err
	}
	if c.Currency == "" {
		return errors.New("CURRENCY é obrigatório")
	}
	if c.ChartWidth < 200 || c.ChartHeight < 120 {
		return fmt.Errorf("dimensões do gráfico muito pequenas: %dx%d", c.ChartWidth, c.ChartHeight)
	}
	return nil
}

// StartingBalanceDecimal parses STARTING_BALANCE.
func (c *Config) StartingBalanceDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.StartingBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("STARTING_BALANCE inválido %q: %w", c.StartingBalance, err)
	}
	return d, nil
}

// DatabaseDSN returns DATABASE_URL when set, otherwise a URL built from the PG* credentials.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return BuildConnString(c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase, c.PGSSLMode)
}

func BuildConnString(user, password, host string, port int, name, sslMode string) string {
	if sslMode == "" {
		sslMode = "prefer"
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     "/" + name,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}
