package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Env is "dev" | "prod".
	Env string

	// Remote validation API
	APIBaseURL  string
	HTTPTimeout time.Duration

	// Audit store
	DBPath string // e.g. "./data/access_logs.db"

	// Actuator channel
	SerialPort string // empty disables the actuator entirely
	SerialBaud int

	// Pipeline tuning
	ScanCooldown time.Duration // dedup window for repeated reads
	DisplayTTL   time.Duration // how long a result stays presentable
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("QRGATE_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	return Config{
		Env:          env,
		APIBaseURL:   strings.TrimRight(getenvDefault("QRGATE_API_BASE_URL", "http://127.0.0.1:8000"), "/"),
		HTTPTimeout:  getenvDurationMs("QRGATE_HTTP_TIMEOUT_MS", 5000),
		DBPath:       getenvDefault("QRGATE_DB_PATH", "./data/access_logs.db"),
		SerialPort:   getenvDefault("QRGATE_SERIAL_PORT", "/dev/ttyUSB0"),
		SerialBaud:   getenvInt("QRGATE_SERIAL_BAUD", 115200),
		ScanCooldown: getenvDurationMs("QRGATE_SCAN_COOLDOWN_MS", 3000),
		DisplayTTL:   getenvDurationMs("QRGATE_DISPLAY_TTL_MS", 5000),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvDurationMs(key string, defMs int) time.Duration {
	return time.Duration(getenvInt(key, defMs)) * time.Millisecond
}
