package services

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	AI         AIConfig
	Speech     SpeechConfig
	Aggregator AggregatorConfig
	Redis      RedisConfig
	Auth       AuthConfig
	WebSocket  WebSocketConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port                 string
	InterviewIdleTimeout time.Duration
}

type DatabaseConfig struct {
	URL          string
	Seed         bool
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

type AIConfig struct {
	GeminiAPIKey          string
	Model                 string
	DynamicQuestions      bool
	CompletionTimeout     time.Duration
	TranscriptionTimeout  time.Duration
	TranscriptionLanguage string
}

type SpeechConfig struct {
	ElevenLabsKey string
	VoiceName     string
	VoiceGender   string
	CacheDir      string
}

type AggregatorConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type RedisConfig struct {
	URL string
}

// AuthConfig controls owner identification. DefaultOwnerID is used when a request names no owner.
type AuthConfig struct {
	JWTSecret      string
	DefaultOwnerID string
}

type WebSocketConfig struct {
	AllowedOrigins string
}

type LogConfig struct {
	Level  string
	Format string
}

const DefaultOwnerID = "00000000-0000-0000-0000-000000000001"

var configKeys = []struct {
	key      string
	env      string
	fallback any
}{
	{"server.port", "SERVER_PORT", "8080"},
	{"server.interview_idle_timeout", "INTERVIEW_IDLE_TIMEOUT", DefaultIdleTimeout.String()},
	{"database.url", "DATABASE_URL", ""},
	{"database.seed", "DATABASE_SEED", "true"},
	{"database.log_level", "DATABASE_LOG_LEVEL", "silent"},
	{"database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS", "10"},
	{"database.max_open_conns", "DATABASE_MAX_OPEN_CONNS", "100"},
	{"gemini.api_key", "GEMINI_API_KEY", ""},
	{"gemini.model", "GEMINI_MODEL", DefaultModelName},
	{"gemini.dynamic_questions", "DYNAMIC_QUESTIONS", "true"},
	{"gemini.timeout", "LLM_TIMEOUT", defaultCompletionTimeout.String()},
	{"gemini.transcription_timeout", "TRANSCRIPTION_TIMEOUT", defaultTranscriptionTimeout.String()},
	{"gemini.transcription_language", "TRANSCRIPTION_LANGUAGE", "en"},
	{"elevenlabs.api_key", "ELEVENLABS_API_KEY", ""},
	{"tts.voice_name", "TTS_VOICE_NAME", ""},
	{"tts.voice_gender", "TTS_VOICE_GENDER", ""},
	{"tts.cache_dir", "TTS_CACHE_DIR", "audio_cache"},
	{"ayrshare.api_key", "AYRSHARE_API_KEY", ""},
	{"ayrshare.base_url", "AYRSHARE_BASE_URL", DefaultAggregatorURL},
	{"ayrshare.timeout", "AYRSHARE_TIMEOUT", DefaultAggregatorTimeout.String()},
	{"redis.url", "REDIS_URL", ""},
	{"jwt.secret", "JWT_SECRET", ""},
	{"auth.default_owner_id", "DEFAULT_OWNER_ID", DefaultOwnerID},
	{"websocket.allowed_origins", "WEBSOCKET_ALLOWED_ORIGINS", ""},
	{"log.level", "LOG_LEVEL", "info"},
	{"log.format", "LOG_FORMAT", "json"},
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	for _, k := range configKeys {
		viper.SetDefault(k.key, k.fallback)
		viper.BindEnv(k.key, k.env)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:                 viper.GetString("server.port"),
			InterviewIdleTimeout: viper.GetDuration("server.interview_idle_timeout"),
		},
		Database: DatabaseConfig{
			URL:          viper.GetString("database.url"),
			Seed:         viper.GetBool("database.seed"),
			LogLevel:     viper.GetString("database.log_level"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
		},
		AI: AIConfig{
			GeminiAPIKey:          viper.GetString("gemini.api_key"),
			Model:                 viper.GetString("gemini.model"),
			DynamicQuestions:      viper.GetBool("gemini.dynamic_questions"),
			CompletionTimeout:     viper.GetDuration("gemini.timeout"),
			TranscriptionTimeout:  viper.GetDuration("gemini.transcription_timeout"),
			TranscriptionLanguage: viper.GetString("gemini.transcription_language"),
		},
		Speech: SpeechConfig{
			ElevenLabsKey: viper.GetString("elevenlabs.api_key"),
			VoiceName:     viper.GetString("tts.voice_name"),
			VoiceGender:   viper.GetString("tts.voice_gender"),
			CacheDir:      viper.GetString("tts.cache_dir"),
		},
		Aggregator: AggregatorConfig{
			APIKey:  viper.GetString("ayrshare.api_key"),
			BaseURL: viper.GetString("ayrshare.base_url"),
			Timeout: viper.GetDuration("ayrshare.timeout"),
		},
		Redis: RedisConfig{
			URL: viper.GetString("redis.url"),
		},
		Auth: AuthConfig{
			JWTSecret:      viper.GetString("jwt.secret"),
			DefaultOwnerID: viper.GetString("auth.default_owner_id"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: viper.GetString("websocket.allowed_origins"),
		},
		Log: LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
	}
}
