package config

import "time"

// RedisConfig configures the fast key-value store that holds the latest tick per symbol.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	KeyPrefix   string        `mapstructure:"key_prefix"` // prepended to the symbol to form the hash key
	ExpirySec   int           `mapstructure:"expiry_sec"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Expiry is the TTL applied to each symbol hash after it is written.
func (c RedisConfig) Expiry() time.Duration {
	return time.Duration(c.ExpirySec) * time.Second
}
