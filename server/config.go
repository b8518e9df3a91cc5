package server

// Config struct
type Config struct {
	// Port is the TCP port of the HTTP API
	Port string `mapstructure:"Port"`

	// ReadTimeoutSec bounds request reads
	ReadTimeoutSec uint `mapstructure:"ReadTimeoutSec"`

	// WriteTimeoutSec bounds response writes
	WriteTimeoutSec uint `mapstructure:"WriteTimeoutSec"`

	// AllowedOrigins for CORS; empty disables cross origin requests
	AllowedOrigins []string `mapstructure:"AllowedOrigins"`
}
