package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerAddr        = ":8080"
	DefaultReadBufferSize    = 4096
	DefaultWriteBufferSize   = 4096
	DefaultWriteTimeout      = 5 * time.Second
	DefaultMaxMessageBytes   = 1 << 20
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultPresenceTTL       = 90 * time.Second
	DefaultPollInterval      = 30 * time.Second
	DefaultPollTimeout       = 10 * time.Second
)

func (c *GatewayConfig) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.ReadBufferSize == 0 {
		c.Server.ReadBufferSize = DefaultReadBufferSize
	}
	if c.Server.WriteBufferSize == 0 {
		c.Server.WriteBufferSize = DefaultWriteBufferSize
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.MaxMessageBytes == 0 {
		c.Server.MaxMessageBytes = DefaultMaxMessageBytes
	}

	if c.Heartbeat.Interval == 0 {
		c.Heartbeat.Interval = DefaultHeartbeatInterval
	}

	applyDBDefaults(&c.Database.Postgres)

	if c.Redis.TTL == 0 {
		c.Redis.TTL = DefaultPresenceTTL
	}

	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
