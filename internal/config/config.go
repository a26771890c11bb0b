package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Relay modes accepted by RELAY_MODE.
const (
	RelayModeEVI      = "evi"
	RelayModePipeline = "pipeline"
)

// LLM providers accepted by AI_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
)

const defaultHumeConfigID = "62840f23-8309-4a9d-97d3-d419ba7d0f60"

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Auth   AuthConfig
	Relay  RelayConfig
	Hume   HumeConfig
	AI     AIConfig
	TTS    TTSConfig
	Debug  DebugConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	relay, err := loadRelayConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	tts, err := loadTTSConfig()
	if err != nil {
		return nil, err
	}

	debug, err := loadDebugConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Auth:   loadAuthConfig(),
		Relay:  relay,
		Hume:   loadHumeConfig(),
		AI:     ai,
		TTS:    tts,
		Debug:  debug,
	}, nil
}

// Warnings lists the credentials that are missing for the selected relay mode.
// Missing credentials never fail startup; the first upstream call fails instead.
func (c *Config) Warnings() []string {
	var warnings []string
	switch c.Relay.Mode {
	case RelayModeEVI:
		if !c.Hume.Enabled() {
			warnings = append(warnings, "HUME_API_KEY is not set, EVI relay will fail on connect")
		}
	case RelayModePipeline:
		if !c.AI.Enabled() {
			warnings = append(warnings, fmt.Sprintf("%s credentials are not set, assistant replies will use the fallback text", c.AI.Provider))
		}
		if !c.TTS.Enabled() {
			warnings = append(warnings, "TTS_API_KEY is not set, audio streaming will fail")
		}
	}
	if c.Debug.Enabled && c.AI.GeminiAPIKey == "" {
		warnings = append(warnings, "DEBUG_ENDPOINT_ENABLED is set but GEMINI_API_KEY is missing, /debug stays disabled")
	}
	return warnings
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AuthConfig 描述访问码登录配置。
type AuthConfig struct {
	AccessCode string
	CookieName string
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		AccessCode: getEnvOrDefault("ACCESS_CODE", "1996"),
		CookieName: getEnvOrDefault("AUTH_COOKIE_NAME", "auth"),
	}
}

// RelayConfig selects which upstream the /ws/chat socket is bridged to.
type RelayConfig struct {
	Mode string
}

func loadRelayConfig() (RelayConfig, error) {
	mode := strings.ToLower(getEnvOrDefault("RELAY_MODE", RelayModeEVI))
	switch mode {
	case RelayModeEVI, RelayModePipeline:
		return RelayConfig{Mode: mode}, nil
	default:
		return RelayConfig{}, fmt.Errorf("invalid RELAY_MODE value %q: want %s or %s", mode, RelayModeEVI, RelayModePipeline)
	}
}

// HumeConfig 描述 Hume EVI 上游配置。
type HumeConfig struct {
	APIKey         string
	ConfigID       string
	URL            string
	MaxMessageSize int64
}

// Enabled 表示是否提供了 Hume 密钥。
func (c HumeConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadHumeConfig() HumeConfig {
	return HumeConfig{
		APIKey:         strings.TrimSpace(os.Getenv("HUME_API_KEY")),
		ConfigID:       getEnvOrDefault("HALEY_VOICE_ID", defaultHumeConfigID),
		URL:            getEnvOrDefault("HUME_EVI_URL", "wss://api.hume.ai/v0/evi/chat"),
		MaxMessageSize: 16 * 1024 * 1024,
	}
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	BaseURL      string
	Region       string
	Temperature  *float64
	MaxTokens    *int
	HistoryLimit int
}

// Enabled 表示所选 provider 是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiAPIKey != "" && c.GeminiModel != ""
	case ProviderArk:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	default:
		return false
	}
}

// NewArkChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewArkChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if c.Model == "" || (c.APIKey == "" && (c.AccessKey == "" || c.SecretKey == "")) {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderGemini))
	if provider != ProviderGemini && provider != ProviderArk {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q: want %s or %s", provider, ProviderGemini, ProviderArk)
	}

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	historyLimit := 20
	if override, err := parseOptionalIntEnv("AI_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 0 {
			historyLimit = 0
		} else {
			historyLimit = *override
		}
	}

	return AIConfig{
		Provider:     provider,
		GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        strings.TrimSpace(os.Getenv("Model")),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		HistoryLimit: historyLimit,
	}, nil
}

// TTSConfig 描述流式语音合成配置
type TTSConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
	Format  string
	Timeout time.Duration
}

// Enabled 表示是否提供了 TTS 密钥。
func (c TTSConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadTTSConfig() (TTSConfig, error) {
	timeout, err := parseOptionalIntEnv("TTS_TIMEOUT")
	if err != nil {
		return TTSConfig{}, err
	}
	timeoutSeconds := 60 // 默认60秒
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	return TTSConfig{
		APIKey:  strings.TrimSpace(os.Getenv("TTS_API_KEY")),
		BaseURL: strings.TrimRight(getEnvOrDefault("TTS_BASE_URL", "https://api.openai.com/v1"), "/"),
		Model:   getEnvOrDefault("TTS_MODEL", "gpt-4o-mini-tts"),
		Voice:   getEnvOrDefault("TTS_VOICE", "alloy"),
		Format:  getEnvOrDefault("TTS_FORMAT", "mp3"),
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// DebugConfig gates the diagnostic /debug endpoint.
type DebugConfig struct {
	Enabled     bool
	ProbeModels []string
}

func loadDebugConfig() (DebugConfig, error) {
	enabled, err := parseBoolEnv("DEBUG_ENDPOINT_ENABLED", false)
	if err != nil {
		return DebugConfig{}, err
	}

	return DebugConfig{
		Enabled:     enabled,
		ProbeModels: splitList(getEnvOrDefault("DEBUG_PROBE_MODELS", "gemini-1.5-flash,gemini-1.5-pro,gemini-2.0-flash")),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
