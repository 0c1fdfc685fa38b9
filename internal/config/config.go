package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port           string `yaml:"port"`
	DBDSN          string `yaml:"db_dsn"`
	LogFile        string `yaml:"log_file"`
	IntakeWorkers  int    `yaml:"intake_workers"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

func defaults() Config {
	return Config{
		Port:           "8080",
		DBDSN:          "techstock.db", // sqlite file in project root
		LogFile:        "./techstock.log",
		IntakeWorkers:  1,
		MetricsEnabled: true,
	}
}

// Load reads TECHSTOCK_CONFIG (optional YAML) and then environment
// overrides. Environment always wins.
func Load() Config {
	cfg := defaults()
	if path := os.Getenv("TECHSTOCK_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			log.Printf("[warn] config file %s ignored: %v", path, err)
		}
	}
	applyEnv(&cfg)
	cfg.IntakeWorkers = clampWorkers(cfg.IntakeWorkers)

	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s INTAKE_WORKERS=%d METRICS_ENABLED=%t",
		cfg.Port, redactDSN(cfg.DBDSN), cfg.LogFile, cfg.IntakeWorkers, cfg.MetricsEnabled)
	return cfg
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DBDSN = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("INTAKE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IntakeWorkers = n
		}
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MetricsEnabled = b
		}
	}
}

func clampWorkers(n int) int {
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}

// redactDSN hides the password part of a URL-style DSN.
func redactDSN(dsn string) string {
	at := strings.Index(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return dsn[:scheme+3] + creds[:colon] + ":***" + dsn[at:]
	}
	return dsn
}
