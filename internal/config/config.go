package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"maternal-care-agent/internal/domain"
)

// Provider names accepted in PROVIDERS. ProviderRules is the terminal
// responder, which is always present.
const (
	ProviderMistral = "mistral"
	ProviderAIML    = "aimlapi"
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
	ProviderRules   = "rules"
)

type Config struct {
	Port        string
	LogLevel    string
	LogFormat   string
	CORSOrigins []string

	Providers       []string
	ProviderTimeout time.Duration
	Temperature     float32
	AssistantPrompt string

	MistralKey     string
	MistralModel   string
	MistralBaseURL string
	AIMLKey        string
	AIMLModel      string
	AIMLBaseURL    string
	OpenAIKey      string
	OpenAIModel    string
	GeminiKey      string
	GeminiModel    string
	GeminiBaseURL  string

	TTSModel      string
	TTSVoice      string
	TTSFormat     string
	AlertLanguage string

	GoogleMapsKey        string
	FacilityRadiusMeters int
	DefaultLatitude      float64
	DefaultLongitude     float64

	EscalationTimeout     time.Duration
	ChatEscalationTimeout time.Duration
	EscalationPolicyFile  string

	StoreDriver        string
	DatabaseURL        string
	MongoURI           string
	MongoDatabase      string
	PatientRecordsPath string

	TelegramToken       string
	TelegramAlertChatID int64
	AllowedChatIDs      []int64
}

const defaultPrompt = "You are a maternal health assistant. Provide empathetic, safe guidance. " +
	"Always encourage professional care for serious symptoms. " +
	"If the backend provides clinic/hospital data, incorporate it naturally."

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	v.SetDefault("PROVIDERS", "mistral,aimlapi")
	v.SetDefault("PROVIDER_TIMEOUT_SECONDS", 12)
	v.SetDefault("TEMPERATURE", 0.7)
	v.SetDefault("ASSISTANT_PROMPT", defaultPrompt)

	v.SetDefault("MISTRAL_MODEL", "mistral-medium")
	v.SetDefault("MISTRAL_BASE_URL", "https://api.mistral.ai/v1")
	v.SetDefault("AI_ML_MODEL", "gpt-4o-mini")
	v.SetDefault("AI_ML_BASE_URL", "https://api.aimlapi.com/v1")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")

	v.SetDefault("OPENAI_TTS_MODEL", "gpt-4o-mini-tts")
	v.SetDefault("OPENAI_TTS_VOICE", "alloy")
	v.SetDefault("OPENAI_TTS_FORMAT", "mp3")
	v.SetDefault("ALERT_LANGUAGE", "sw")

	v.SetDefault("FACILITY_RADIUS_METERS", 5000)
	v.SetDefault("DEFAULT_LATITUDE", -1.2921)
	v.SetDefault("DEFAULT_LONGITUDE", 36.8219)

	v.SetDefault("ESCALATION_TIMEOUT_SECONDS", 15)
	v.SetDefault("CHAT_ESCALATION_TIMEOUT_MS", 4000)

	v.SetDefault("STORE_DRIVER", "memory")
	v.SetDefault("MONGODB_DATABASE", "maternal_care")
	v.SetDefault("PATIENT_RECORDS_PATH", "data/patient_records.json")
}

// Load reads the .env file at path (existing environment wins), then an
// optional YAML file named by CONFIG_FILE, and validates the result.
func Load(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		log.Printf("could not read .env: %v", err)
	}

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", domain.ErrConfiguration, file, err)
		}
	}

	cfg := Config{
		Port:        v.GetString("PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		LogFormat:   v.GetString("LOG_FORMAT"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),

		Providers:       splitList(strings.ToLower(v.GetString("PROVIDERS"))),
		ProviderTimeout: time.Duration(v.GetInt("PROVIDER_TIMEOUT_SECONDS")) * time.Second,
		Temperature:     float32(v.GetFloat64("TEMPERATURE")),
		AssistantPrompt: v.GetString("ASSISTANT_PROMPT"),

		MistralKey:     v.GetString("MISTRAL_API_KEY"),
		MistralModel:   v.GetString("MISTRAL_MODEL"),
		MistralBaseURL: v.GetString("MISTRAL_BASE_URL"),
		AIMLKey:        v.GetString("AI_ML_API_KEY"),
		AIMLModel:      v.GetString("AI_ML_MODEL"),
		AIMLBaseURL:    v.GetString("AI_ML_BASE_URL"),
		OpenAIKey:      v.GetString("OPENAI_API_KEY"),
		OpenAIModel:    v.GetString("OPENAI_MODEL"),
		GeminiKey:      v.GetString("GEMINI_API_KEY"),
		GeminiModel:    v.GetString("GEMINI_MODEL"),
		GeminiBaseURL:  v.GetString("GEMINI_BASE_URL"),

		TTSModel:      v.GetString("OPENAI_TTS_MODEL"),
		TTSVoice:      v.GetString("OPENAI_TTS_VOICE"),
		TTSFormat:     v.GetString("OPENAI_TTS_FORMAT"),
		AlertLanguage: v.GetString("ALERT_LANGUAGE"),

		GoogleMapsKey:        v.GetString("GOOGLE_MAPS_API_KEY"),
		FacilityRadiusMeters: v.GetInt("FACILITY_RADIUS_METERS"),
		DefaultLatitude:      v.GetFloat64("DEFAULT_LATITUDE"),
		DefaultLongitude:     v.GetFloat64("DEFAULT_LONGITUDE"),

		EscalationTimeout:     time.Duration(v.GetInt("ESCALATION_TIMEOUT_SECONDS")) * time.Second,
		ChatEscalationTimeout: time.Duration(v.GetInt("CHAT_ESCALATION_TIMEOUT_MS")) * time.Millisecond,
		EscalationPolicyFile:  v.GetString("ESCALATION_POLICY_FILE"),

		StoreDriver:        strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		MongoURI:           v.GetString("MONGODB_URI"),
		MongoDatabase:      v.GetString("MONGODB_DATABASE"),
		PatientRecordsPath: v.GetString("PATIENT_RECORDS_PATH"),

		TelegramToken:  v.GetString("TELEGRAM_BOT_TOKEN"),
		AllowedChatIDs: parseIDs(v.GetString("ALLOWED_TELEGRAM_CHAT_IDS")),
	}

	if raw := strings.TrimSpace(v.GetString("TELEGRAM_ALERT_CHAT_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("%w: TELEGRAM_ALERT_CHAT_ID=%q", domain.ErrConfiguration, raw)
		}
		cfg.TelegramAlertChatID = id
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the provider roster and storage settings.
func (c Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("%w: PROVIDERS is empty", domain.ErrConfiguration)
	}

	var errs []error
	for _, name := range c.Providers {
		key, known := c.providerKey(name)
		switch {
		case !known:
			errs = append(errs, fmt.Errorf("unknown provider %q", name))
		case name != ProviderRules && key == "":
			errs = append(errs, fmt.Errorf("provider %q has no API key", name))
		}
	}

	switch c.StoreDriver {
	case "memory":
	case "sqlite", "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("STORE_DRIVER=%s requires DATABASE_URL", c.StoreDriver))
		}
	case "mongo":
		if c.MongoURI == "" {
			errs = append(errs, errors.New("STORE_DRIVER=mongo requires MONGODB_URI"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// GenerativeProviders returns the configured providers without the terminal
// responder, in order.
func (c Config) GenerativeProviders() []string {
	out := make([]string, 0, len(c.Providers))
	for _, p := range c.Providers {
		if p != ProviderRules {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) providerKey(name string) (string, bool) {
	switch name {
	case ProviderMistral:
		return c.MistralKey, true
	case ProviderAIML:
		return c.AIMLKey, true
	case ProviderOpenAI:
		return c.OpenAIKey, true
	case ProviderGemini:
		return c.GeminiKey, true
	case ProviderRules:
		return "", true
	}
	return "", false
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIDs(raw string) []int64 {
	parts := splitList(raw)
	if len(parts) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			log.Printf("skipping chat id %q: %v", p, err)
			continue
		}
		ids = append(ids, v)
	}
	return ids
}
