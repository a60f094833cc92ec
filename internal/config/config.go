package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

type Config struct {
	StoreDriver string `yaml:"store_driver"`

	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBSSLMode  string `yaml:"db_sslmode"`

	SQLitePath string `yaml:"sqlite_path"`

	ServerPort  string `yaml:"server_port"`
	AutoMigrate bool   `yaml:"auto_migrate"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	LogLevel string `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		StoreDriver: DriverPostgres,
		DBHost:      "localhost",
		DBPort:      "5432",
		DBUser:      "postgres",
		DBPassword:  "password",
		DBName:      "bank_ledger",
		DBSSLMode:   "disable",
		SQLitePath:  "bank_ledger.db",
		ServerPort:  "8080",
		AutoMigrate: true,
		KafkaTopic:  "ledger_events",
		LogLevel:    "info",
	}
}

// Load layers defaults, the YAML file named by LEDGER_CONFIG_FILE, a .env
// file in the working directory, and finally the process environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("LEDGER_CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	// A missing .env is fine; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	setString(&c.StoreDriver, "STORE_DRIVER")
	setString(&c.DBHost, "DB_HOST")
	setString(&c.DBPort, "DB_PORT")
	setString(&c.DBUser, "DB_USER")
	setString(&c.DBPassword, "DB_PASSWORD")
	setString(&c.DBName, "DB_NAME")
	setString(&c.DBSSLMode, "DB_SSLMODE")
	setString(&c.SQLitePath, "SQLITE_PATH")
	setString(&c.ServerPort, "SERVER_PORT")
	setString(&c.KafkaTopic, "KAFKA_TOPIC")
	setString(&c.LogLevel, "LOG_LEVEL")

	if v, ok := os.LookupEnv("AUTO_MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AUTO_MIGRATE: %w", err)
		}
		c.AutoMigrate = b
	}

	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		c.KafkaBrokers = nil
		for _, broker := range strings.Split(v, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				c.KafkaBrokers = append(c.KafkaBrokers, broker)
			}
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(c.StoreDriver)
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite, DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreDriver == DriverMySQL {
		if _, err := strconv.Atoi(c.DBPort); err != nil {
			return fmt.Errorf("DB_PORT must be numeric for mysql: %w", err)
		}
	}
	return nil
}

// GetDBConnectionString returns the PostgreSQL connection string.
func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// MySQLPort is DB_PORT as a number; Validate has already checked it for the
// mysql driver.
func (c *Config) MySQLPort() int {
	port, _ := strconv.Atoi(c.DBPort)
	return port
}
