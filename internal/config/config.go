// Package config loads pipeline configuration from the process environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable named in the external-interfaces contract plus
// the pipeline internals (queue sizes, batching, concurrency) that the
// supervisor needs to wire the five stages together.
type Config struct {
	CertMaxValidity time.Duration

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	PulsarHost   string
	PulsarPort   int
	PulsarTopic  string
	DomainTopic  string

	CertstreamURL string
	DoHEndpoint   string

	QueueABCapacity int
	QueueBCCapacity int
	QueueCDCapacity int

	DoHBatchTarget  int
	DoHConcurrency  int
	RollingWindow   int

	DBMinConns     int
	DBMaxConns     int
	DBConnTimeout  time.Duration
}

// Load reads configuration from the environment via viper, applying
// defaults for every value spec.md documents, then validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("CERT_MAX_VALIDITY", 7776000) // 90 days, in seconds
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "ctsentinel")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "ctsentinel")
	v.SetDefault("PULSAR_HOST", "")
	v.SetDefault("PULSAR_PORT", 6650)
	v.SetDefault("PULSAR_TOPIC", "")
	v.SetDefault("DOMAIN_TOPIC", "delete-me-topic")
	v.SetDefault("CERTSTREAM_URL", "wss://certstream.calidog.io/")
	v.SetDefault("DOH_ENDPOINT", "https://cloudflare-dns.com/dns-query")
	v.SetDefault("QUEUE_AB_CAPACITY", 1000)
	v.SetDefault("QUEUE_BC_CAPACITY", 50000)
	v.SetDefault("QUEUE_CD_CAPACITY", 1000)
	v.SetDefault("DOH_BATCH_TARGET", 4000)
	v.SetDefault("DOH_CONCURRENCY", 500)
	v.SetDefault("ROLLING_WINDOW", 300)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_CONNECT_TIMEOUT_SECONDS", 10)

	cfg := &Config{
		CertMaxValidity: time.Duration(v.GetInt64("CERT_MAX_VALIDITY")) * time.Second,
		DBHost:          v.GetString("DB_HOST"),
		DBPort:          v.GetInt("DB_PORT"),
		DBUser:          v.GetString("DB_USER"),
		DBPassword:      v.GetString("DB_PASSWORD"),
		DBName:          v.GetString("DB_NAME"),
		PulsarHost:      v.GetString("PULSAR_HOST"),
		PulsarPort:      v.GetInt("PULSAR_PORT"),
		PulsarTopic:     v.GetString("PULSAR_TOPIC"),
		DomainTopic:     v.GetString("DOMAIN_TOPIC"),
		CertstreamURL:   v.GetString("CERTSTREAM_URL"),
		DoHEndpoint:     v.GetString("DOH_ENDPOINT"),
		QueueABCapacity: v.GetInt("QUEUE_AB_CAPACITY"),
		QueueBCCapacity: v.GetInt("QUEUE_BC_CAPACITY"),
		QueueCDCapacity: v.GetInt("QUEUE_CD_CAPACITY"),
		DoHBatchTarget:  v.GetInt("DOH_BATCH_TARGET"),
		DoHConcurrency:  v.GetInt("DOH_CONCURRENCY"),
		RollingWindow:   v.GetInt("ROLLING_WINDOW"),
		DBMinConns:      v.GetInt("DB_MIN_CONNS"),
		DBMaxConns:      v.GetInt("DB_MAX_CONNS"),
		DBConnTimeout:   time.Duration(v.GetInt("DB_CONNECT_TIMEOUT_SECONDS")) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fills in documented defaults for anything left at its zero value
// and rejects configuration that can never produce a working pipeline.
func (c *Config) Validate() error {
	if c.CertMaxValidity <= 0 {
		c.CertMaxValidity = 7776000 * time.Second
	}
	if c.QueueABCapacity <= 0 {
		c.QueueABCapacity = 1000
	}
	if c.QueueBCCapacity <= 0 {
		c.QueueBCCapacity = 50000
	}
	if c.QueueCDCapacity <= 0 {
		c.QueueCDCapacity = 1000
	}
	if c.DoHBatchTarget <= 0 {
		c.DoHBatchTarget = 4000
	}
	if c.DoHConcurrency <= 0 {
		c.DoHConcurrency = 500
	}
	if c.RollingWindow <= 0 {
		c.RollingWindow = 300
	}
	if c.DBMinConns <= 0 {
		c.DBMinConns = 5
	}
	if c.DBMaxConns < c.DBMinConns {
		c.DBMaxConns = c.DBMinConns * 4
	}
	if c.DBConnTimeout <= 0 {
		c.DBConnTimeout = 10 * time.Second
	}
	if c.DBHost == "" {
		return fmt.Errorf("config: DB_HOST must be set")
	}
	if c.DBName == "" {
		return fmt.Errorf("config: DB_NAME must be set")
	}
	return nil
}

// PulsarEnabled reports whether the optional broker sink should be started.
func (c *Config) PulsarEnabled() bool {
	return c.PulsarHost != ""
}

// PulsarURL returns the pulsar:// connection string for the configured broker.
func (c *Config) PulsarURL() string {
	return fmt.Sprintf("pulsar://%s:%d", c.PulsarHost, c.PulsarPort)
}

// PulsarFullTopic returns the fully-qualified topic name, honoring an
// explicit PULSAR_TOPIC override before falling back to the
// persistent://public/default/{DOMAIN_TOPIC} default from spec.md §6.
func (c *Config) PulsarFullTopic() string {
	if c.PulsarTopic != "" {
		return c.PulsarTopic
	}
	return fmt.Sprintf("persistent://public/default/%s", c.DomainTopic)
}

// DSN builds the lib/pq connection string for the configured Postgres store.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable connect_timeout=%d",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, int(c.DBConnTimeout.Seconds()))
}
