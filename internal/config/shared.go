package config

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// --- Shared Configs ---

type ServerConfig struct {
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080"`
	Name            string        `env:"SERVICE_NAME" envDefault:"party-game"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"` // debug, info, warn, error
	Format string `env:"LOG_FORMAT" envDefault:"console"`
	File   string `env:"LOG_FILE"` // empty logs to stdout only
}

type DatabaseConfig struct {
	Driver   string `env:"DB_DRIVER" envDefault:"postgres"` // postgres, sqlite
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"party_user"`
	Password string `env:"DB_PASSWORD" envDefault:"party_pass"`
	Name     string `env:"DB_NAME" envDefault:"party_db"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	Path     string `env:"DB_PATH" envDefault:"party.db"` // sqlite file
	MaxConns int    `env:"DB_MAX_CONNS" envDefault:"20"`
}

// DSN renders the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

type RedisConfig struct {
	Enabled bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Host    string `env:"REDIS_HOST" envDefault:"localhost"`
	Port    string `env:"REDIS_PORT" envDefault:"6379"`
	Channel string `env:"REDIS_EVENT_CHANNEL" envDefault:"party_game:events"`
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type JWTConfig struct {
	Secret          string        `env:"JWT_SECRET" envDefault:"dev-secret-key"`
	Duration        time.Duration `env:"JWT_DURATION" envDefault:"24h"`
	RefreshDuration time.Duration `env:"JWT_REFRESH_DURATION" envDefault:"168h"`
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"10"`
}

// Dialector picks the gorm driver for Driver.
func (c DatabaseConfig) Dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case "postgres", "":
		return postgres.Open(c.DSN()), nil
	case "sqlite":
		return sqlite.Open(c.Path), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", c.Driver)
	}
}
