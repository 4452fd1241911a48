package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Lookup  LookupConfig
	Decoder DecoderConfig
	Torch   TorchConfig
	Events  EventsConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	DisplayLogFilePath string
	CorsAllowedOrigins string
}

type LookupConfig struct {
	BaseURL    string
	AutoSubmit bool
}

type DecoderConfig struct {
	Kind              string // "stdin", "usb", "simulated" or "none"
	USBVendorID       uint16
	USBProductID      uint16
	USBSerial         string
	SimulatedCode     string
	SimulatedInterval time.Duration
	Debounce          time.Duration
}

type TorchConfig struct {
	LEDPath string
	OnStart bool
}

type EventsConfig struct {
	NatsURL  string
	RedisURL string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/station.log"),
			DisplayLogFilePath: getEnv("DISPLAY_LOG_FILE_PATH", "logs/display.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Lookup: LookupConfig{
			BaseURL:    getEnv("LOOKUP_BASE_URL", "http://server/index.php"),
			AutoSubmit: getEnvAsBool("AUTO_SUBMIT", false),
		},
		Decoder: DecoderConfig{
			Kind:              getEnv("DECODER", "stdin"),
			USBVendorID:       getEnvAsHexID("USB_VENDOR_ID", 0x0c2e),
			USBProductID:      getEnvAsHexID("USB_PRODUCT_ID", 0x0a07),
			USBSerial:         getEnv("USB_SERIAL", ""),
			SimulatedCode:     getEnv("SIMULATED_CODE", "pep"),
			SimulatedInterval: time.Duration(getEnvAsInt("SIMULATED_INTERVAL_MS", 5000)) * time.Millisecond,
			Debounce:          time.Duration(getEnvAsInt("SCAN_DEBOUNCE_MS", 1000)) * time.Millisecond,
		},
		Torch: TorchConfig{
			LEDPath: getEnv("TORCH_LED_PATH", ""),
			OnStart: getEnvAsBool("TORCH_ON_START", false),
		},
		Events: EventsConfig{
			NatsURL:  getEnv("NATS_URL", ""),
			RedisURL: getEnv("REDIS_URL", ""),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "barcode-lookup-station"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsHexID parses USB ids written as "0c2e" or "0x0c2e".
func getEnvAsHexID(key string, fallback uint16) uint16 {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	value, err := strconv.ParseUint(strValue, 0, 16)
	if err != nil {
		value, err = strconv.ParseUint(strValue, 16, 16)
		if err != nil {
			return fallback
		}
	}
	return uint16(value)
}
