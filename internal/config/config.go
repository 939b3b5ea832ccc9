package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  int
	Password              string
	AuthRequired          bool   // Wymaga logowania przed start/settings
	DetectionURL          string // Bazowy adres serwisu detekcji (POST <url>/detect)
	DetectionTimeout      time.Duration
	CadenceHz             float64 // Domyślna częstotliwość próbkowania klatek
	Sensitivity           int
	AlertVolume           int
	AlertMode             string
	CameraDevice          string
	MaxCameraDevices      int            // Ile indeksów kamer sprawdzać przy wyliczaniu urządzeń
	CameraLabels          map[int]string // Nazwy kamer, CAMERA_LABELS="0=Front,1=USB"
	DatabasePath          string
	ImageDirectory        string
	SnapshotBufferLimit   int
	SnapshotFlushInterval int // Co ile sekund zapisywać zrzuty alertów na dysk
	LogDirectory          string
	StaticDirectory       string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnvAsInt("PORT", 8080),
		Password:              getEnv("PASSWORD", "drowsyguard"),
		AuthRequired:          getEnvAsBool("AUTH_REQUIRED", false),
		DetectionURL:          strings.TrimSuffix(getEnv("DETECTION_URL", "http://localhost:5000"), "/"),
		DetectionTimeout:      time.Duration(getEnvAsInt("DETECTION_TIMEOUT_MS", 8000)) * time.Millisecond,
		CadenceHz:             getEnvAsFloat("CADENCE_HZ", 10),
		Sensitivity:           getEnvAsInt("SENSITIVITY", 5),
		AlertVolume:           getEnvAsInt("ALERT_VOLUME", 7),
		AlertMode:             getEnv("ALERT_MODE", "both"),
		CameraDevice:          getEnv("CAMERA_DEVICE", ""),
		MaxCameraDevices:      getEnvAsInt("MAX_CAMERA_DEVICES", 4),
		CameraLabels:          getEnvAsLabels("CAMERA_LABELS"),
		DatabasePath:          getEnv("DB_PATH", filepath.Join(".", "data", "journal.db")),
		ImageDirectory:        getEnv("IMAGE_DIR", filepath.Join(".", "images")),
		SnapshotBufferLimit:   getEnvAsInt("SNAPSHOT_BUFFER_LIMIT", 20),
		SnapshotFlushInterval: getEnvAsInt("SNAPSHOT_FLUSH_INTERVAL", 30),
		LogDirectory:          getEnv("LOG_DIR", filepath.Join(".", "logs")),
		StaticDirectory:       getEnv("STATIC_DIR", "static"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsLabels parses "index=label" pairs separated by commas. Malformed
// pairs are skipped.
func getEnvAsLabels(key string) map[int]string {
	labels := make(map[int]string)
	for _, pair := range strings.Split(os.Getenv(key), ",") {
		idx, label, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(idx))
		label = strings.TrimSpace(label)
		if err != nil || n < 0 || label == "" {
			continue
		}
		labels[n] = label
	}
	return labels
}
