package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Store    StoreConfig
	Turn     TurnConfig
	Remote   RemoteConfig
	Safety   SafetyConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	TurnLogFilePath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	EventTopic         string
}

type DatabaseConfig struct {
	Connection string
}

type StoreConfig struct {
	Backend  string // "postgres", "redis" or "memory"
	RedisTTL time.Duration
}

type TurnConfig struct {
	TurnTimeout       time.Duration
	AnnotationTimeout time.Duration
	RGTimeout         time.Duration
	PersistTimeout    time.Duration
	LaunchRG          string
	FallbackRG        string
	Apology           string
	SafeUtterances    []string
	Connectors        []string
	RecentWindow      int
}

type RemoteConfig struct {
	Services []RemoteService
}

// RemoteService is one annotator endpoint. Services without a URL are not
// registered.
type RemoteService struct {
	Name            string
	URL             string
	Timeout         time.Duration
	Retries         int
	RequiredContext []string
}

type SafetyConfig struct {
	BlacklistPath string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRatio float64
}

// remoteServiceNames are the annotators looked up in the environment.
var remoteServiceNames = []string{"segmenter", "dialogact", "entitylinker", "coref", "question", "emotion", "corenlp"}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			TurnLogFilePath:    getEnv("TURN_LOG_FILE_PATH", "logs/turns.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			EventTopic:         getEnv("EVENT_TOPIC", "TURN_COMPLETED"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Store: StoreConfig{
			Backend:  getEnv("STATE_STORE", "memory"),
			RedisTTL: getEnvAsDuration("STATE_REDIS_TTL", 24*time.Hour),
		},
		Turn: TurnConfig{
			TurnTimeout:       getEnvAsDuration("TURN_TIMEOUT", 6*time.Second),
			AnnotationTimeout: getEnvAsDuration("ANNOTATION_TIMEOUT", 2*time.Second),
			RGTimeout:         getEnvAsDuration("RG_TIMEOUT", 2*time.Second),
			PersistTimeout:    getEnvAsDuration("PERSIST_TIMEOUT", 2*time.Second),
			LaunchRG:          getEnv("LAUNCH_RG", "LAUNCH"),
			FallbackRG:        getEnv("FALLBACK_RG", "FALLBACK"),
			Apology:           getEnv("SAFETY_APOLOGY", "Oops, sorry about that."),
			SafeUtterances: getEnvAsList("SAFE_UTTERANCES", "|", []string{
				"Sorry, I didn't quite catch that. Could you say it another way?",
				"Hmm, I'm not sure what to say. What else is on your mind?",
			}),
			Connectors:   getEnvAsList("PROMPT_CONNECTORS", "|", []string{"By the way,", "Anyway,", "So,"}),
			RecentWindow: getEnvAsInt("RECENT_UTTERANCE_WINDOW", 3),
		},
		Remote: loadRemote(),
		Safety: SafetyConfig{
			BlacklistPath: getEnv("SAFETY_BLACKLIST_PATH", ""),
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "socialbot-be"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}
}

func loadRemote() RemoteConfig {
	var cfg RemoteConfig
	for _, name := range remoteServiceNames {
		prefix := "REMOTE_" + strings.ToUpper(name) + "_"
		url := getEnv(prefix+"URL", "")
		if url == "" {
			continue
		}
		cfg.Services = append(cfg.Services, RemoteService{
			Name:            name,
			URL:             url,
			Timeout:         getEnvAsDuration(prefix+"TIMEOUT", 2*time.Second),
			Retries:         getEnvAsInt(prefix+"RETRIES", 1),
			RequiredContext: getEnvAsList(prefix+"REQUIRED_CONTEXT", ",", nil),
		})
	}
	return cfg
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("1500ms") or plain milliseconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func getEnvAsList(key, sep string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
