package config

import (
	"time"

	"github.com/Veraticus/tollgate-risk/internal/storage"
	"github.com/spf13/viper"
)

// DefaultServerAddr is the listen address for the HTTP API.
const DefaultServerAddr = ":8080"

// LoadStorageOptions reads repository settings. The database path defaults
// to DefaultDatabasePath.
func LoadStorageOptions() storage.Options {
	opts := storage.Options{
		Driver:       viper.GetString("storage.driver"),
		DatabasePath: ExpandPath(viper.GetString("database.path")),
		RedisAddr:    viper.GetString("redis.addr"),
		RedisTTL:     viper.GetDuration("redis.ttl"),
	}
	if opts.Driver == "" {
		opts.Driver = storage.DriverSQLite
	}
	if opts.DatabasePath == "" {
		opts.DatabasePath = DefaultDatabasePath()
	}
	if opts.RedisAddr == "" {
		opts.RedisAddr = "localhost:6379"
	}
	if opts.RedisTTL < 0 {
		opts.RedisTTL = 0
	}
	return opts
}

// ServerAddr returns server.addr or DefaultServerAddr.
func ServerAddr() string {
	if v := viper.GetString("server.addr"); v != "" {
		return v
	}
	return DefaultServerAddr
}

// ShutdownTimeout bounds graceful shutdown of the HTTP API.
func ShutdownTimeout() time.Duration {
	if d := viper.GetDuration("server.shutdown_timeout"); d > 0 {
		return d
	}
	return 10 * time.Second
}
