package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ACCESS_CODE", "AUTH_COOKIE_NAME", "RELAY_MODE", "HUME_API_KEY", "HALEY_VOICE_ID",
		"AI_PROVIDER", "GEMINI_MODEL", "AI_HISTORY_LIMIT", "TTS_TIMEOUT", "TTS_BASE_URL", "DEBUG_ENDPOINT_ENABLED",
		"DEBUG_PROBE_MODELS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Auth.AccessCode != "1996" || cfg.Auth.CookieName != "auth" {
		t.Fatalf("unexpected auth config: %+v", cfg.Auth)
	}
	if cfg.Relay.Mode != RelayModeEVI {
		t.Fatalf("expected evi mode, got %s", cfg.Relay.Mode)
	}
	if cfg.Hume.ConfigID != defaultHumeConfigID {
		t.Fatalf("unexpected config id: %s", cfg.Hume.ConfigID)
	}
	if cfg.Hume.Enabled() {
		t.Fatal("hume should be disabled without key")
	}
	if cfg.AI.Provider != ProviderGemini || cfg.AI.GeminiModel != "gemini-1.5-flash" {
		t.Fatalf("unexpected ai config: %+v", cfg.AI)
	}
	if cfg.AI.HistoryLimit != 20 {
		t.Fatalf("unexpected history limit: %d", cfg.AI.HistoryLimit)
	}
	if cfg.TTS.Timeout != 60*time.Second {
		t.Fatalf("unexpected tts timeout: %v", cfg.TTS.Timeout)
	}
	if cfg.Debug.Enabled {
		t.Fatal("debug endpoint should be disabled by default")
	}
	want := []string{"gemini-1.5-flash", "gemini-1.5-pro", "gemini-2.0-flash"}
	if !reflect.DeepEqual(cfg.Debug.ProbeModels, want) {
		t.Fatalf("unexpected probe models: %v", cfg.Debug.ProbeModels)
	}
}

func TestLoadServerConfig(t *testing.T) {
	cases := []struct {
		port    string
		want    string
		wantErr bool
	}{
		{port: "9000", want: ":9000"},
		{port: ":9001", want: ":9001"},
		{port: "127.0.0.1:9002", want: "127.0.0.1:9002"},
		{port: "90 00", wantErr: true},
	}

	for _, tc := range cases {
		t.Setenv("PORT", tc.port)
		got, err := loadServerConfig()
		if tc.wantErr {
			if err == nil {
				t.Fatalf("PORT=%q: expected error", tc.port)
			}
			continue
		}
		if err != nil {
			t.Fatalf("PORT=%q: unexpected error %v", tc.port, err)
		}
		if got.Addr != tc.want {
			t.Fatalf("PORT=%q: got %s want %s", tc.port, got.Addr, tc.want)
		}
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		key   string
		value string
	}{
		{key: "RELAY_MODE", value: "carrier-pigeon"},
		{key: "AI_PROVIDER", value: "oracle"},
		{key: "AI_MAX_TOKENS", value: "lots"},
		{key: "TTS_TIMEOUT", value: "soon"},
		{key: "DEBUG_ENDPOINT_ENABLED", value: "maybe"},
	}

	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

func TestAIConfigEnabled(t *testing.T) {
	cases := []struct {
		name string
		cfg  AIConfig
		want bool
	}{
		{name: "gemini with key", cfg: AIConfig{Provider: ProviderGemini, GeminiAPIKey: "k", GeminiModel: "m"}, want: true},
		{name: "gemini without key", cfg: AIConfig{Provider: ProviderGemini, GeminiModel: "m"}, want: false},
		{name: "ark with api key", cfg: AIConfig{Provider: ProviderArk, APIKey: "k", Model: "m"}, want: true},
		{name: "ark with ak/sk", cfg: AIConfig{Provider: ProviderArk, AccessKey: "a", SecretKey: "s", Model: "m"}, want: true},
		{name: "ark without model", cfg: AIConfig{Provider: ProviderArk, APIKey: "k"}, want: false},
		{name: "unknown provider", cfg: AIConfig{Provider: "x", APIKey: "k", Model: "m"}, want: false},
	}

	for _, tc := range cases {
		if got := tc.cfg.Enabled(); got != tc.want {
			t.Errorf("%s: Enabled() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestWarningsFollowRelayMode(t *testing.T) {
	cfg := &Config{Relay: RelayConfig{Mode: RelayModeEVI}, AI: AIConfig{Provider: ProviderGemini}}
	if got := cfg.Warnings(); len(got) != 1 {
		t.Fatalf("expected a single hume warning, got %v", got)
	}

	cfg.Relay.Mode = RelayModePipeline
	if got := cfg.Warnings(); len(got) != 2 {
		t.Fatalf("expected ai and tts warnings, got %v", got)
	}

	cfg.AI.GeminiAPIKey = "k"
	cfg.AI.GeminiModel = "m"
	cfg.TTS.APIKey = "t"
	if got := cfg.Warnings(); len(got) != 0 {
		t.Fatalf("expected no warnings, got %v", got)
	}
}
