// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Printer   PrinterConfig   `mapstructure:"printer"`
	USB       USBConfig       `mapstructure:"usb"`
	BLE       BLEConfig       `mapstructure:"ble"`
	Bluetooth BluetoothConfig `mapstructure:"bluetooth"`
	Terminal  TerminalConfig  `mapstructure:"terminal"`
	App       AppConfig       `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// PrinterConfig holds settings shared by every transport
type PrinterConfig struct {
	Transports     []string      `mapstructure:"transports"`
	MaxWidth       int           `mapstructure:"max_width"`
	ConnectPolicy  string        `mapstructure:"connect_policy"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	SendTimeout    time.Duration `mapstructure:"send_timeout"`
}

// USBConfig represents USB printer configuration
type USBConfig struct {
	VendorID  uint16        `mapstructure:"vendor_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Interface int           `mapstructure:"interface"`
	Debug     int           `mapstructure:"debug"`
	// KnownProducts extends the built-in printer table
	KnownProducts []USBProduct `mapstructure:"known_products"`
}

// USBProduct names a printer model. Devices from its vendor are listed
// by discovery even without the printer class.
type USBProduct struct {
	VendorID  uint16 `mapstructure:"vendor_id"`
	ProductID uint16 `mapstructure:"product_id"`
	Vendor    string `mapstructure:"vendor"`
	Model     string `mapstructure:"model"`
}

// BLEConfig represents Bluetooth Low Energy configuration
type BLEConfig struct {
	ServiceUUID   string        `mapstructure:"service_uuid"`
	WriteCharUUID string        `mapstructure:"write_char_uuid"`
	NotifyUUID    string        `mapstructure:"notify_char_uuid"`
	NameFilter    string        `mapstructure:"name_filter"`
	ScanTimeout   time.Duration `mapstructure:"scan_timeout"`
	ChunkSize     int           `mapstructure:"chunk_size"`
}

// BluetoothConfig represents classic Bluetooth (RFCOMM) configuration
type BluetoothConfig struct {
	DeviceName   string   `mapstructure:"device_name"`
	PortPatterns []string `mapstructure:"port_patterns"`
	BaudRate     int      `mapstructure:"baud_rate"`
}

// TerminalConfig configures the text-only diagnostic printer
type TerminalConfig struct {
	Output string `mapstructure:"output"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from an optional config.yaml and PRINTER_SERVICE_* variables
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	return load(v)
}

// LoadFile loads configuration from an explicit file path
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	// Environment variable support
	v.SetEnvPrefix("PRINTER_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8085")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")

	v.SetDefault("security.allowed_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Printer defaults
	v.SetDefault("printer.transports", []string{"usb", "ble", "bluetooth", "terminal"})
	v.SetDefault("printer.max_width", 384)
	v.SetDefault("printer.connect_policy", "keep")
	v.SetDefault("printer.connect_timeout", "20s")
	v.SetDefault("printer.send_timeout", "30s")

	v.SetDefault("usb.vendor_id", 0)
	v.SetDefault("usb.timeout", "1s")
	v.SetDefault("usb.interface", 0)
	v.SetDefault("usb.debug", 0)

	v.SetDefault("ble.service_uuid", "000018f0-0000-1000-8000-00805f9b34fb")
	v.SetDefault("ble.write_char_uuid", "2af1")
	v.SetDefault("ble.notify_char_uuid", "2af0")
	v.SetDefault("ble.name_filter", "")
	v.SetDefault("ble.scan_timeout", "5s")
	v.SetDefault("ble.chunk_size", 20)

	v.SetDefault("bluetooth.device_name", "")
	v.SetDefault("bluetooth.port_patterns", []string{"rfcomm", "bluetooth", "bthenum", "tty.BT"})
	v.SetDefault("bluetooth.baud_rate", 9600)

	v.SetDefault("terminal.output", "stdout")

	// App defaults
	v.SetDefault("app.name", "printer-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	if !contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	validPolicies := []string{"keep", "replace"}
	if !contains(validPolicies, config.Printer.ConnectPolicy) {
		return fmt.Errorf("printer.connect_policy must be one of: %v", validPolicies)
	}

	if config.Printer.MaxWidth <= 0 {
		return fmt.Errorf("printer.max_width must be positive")
	}
	if config.BLE.ChunkSize <= 0 {
		return fmt.Errorf("ble.chunk_size must be positive")
	}

	for i, p := range config.USB.KnownProducts {
		if p.VendorID == 0 || p.Model == "" {
			return fmt.Errorf("usb.known_products[%d] needs vendor_id and model", i)
		}
	}

	validTransports := []string{"usb", "ble", "bluetooth", "terminal"}
	for _, t := range config.Printer.Transports {
		if !contains(validTransports, strings.ToLower(t)) {
			return fmt.Errorf("printer.transports entries must be one of: %v", validTransports)
		}
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
