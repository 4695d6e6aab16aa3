// Package config loads engine settings and the persisted watch state.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/alert"
	"github.com/newthinker/cryptosignal/internal/analysis"
	"github.com/newthinker/cryptosignal/internal/core"
)

// EnvPrefix prefixes environment overrides, e.g. CRYPTOSIGNAL_ACCOUNT_BALANCE.
const EnvPrefix = "CRYPTOSIGNAL"

type Settings struct {
	Account   AccountConfig   `mapstructure:"account"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Providers []string        `mapstructure:"providers" default:"[\"okx\",\"binance\"]" validate:"min=1,dive,oneof=okx binance"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Predictor PredictorConfig `mapstructure:"predictor"`
	Sinks     SinksConfig     `mapstructure:"sinks"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

type AccountConfig struct {
	Balance     float64 `mapstructure:"balance" default:"1000" validate:"gt=0"`
	RiskPercent float64 `mapstructure:"risk_percent" default:"2" validate:"gt=0,lte=100"`
}

type AnalysisConfig struct {
	Profile  string                   `mapstructure:"profile" default:"crypto" validate:"oneof=crypto classic minimal"`
	Fusion   string                   `mapstructure:"fusion" default:"basic" validate:"oneof=basic extended"`
	Limit    int                      `mapstructure:"limit" default:"200" validate:"gte=2,lte=1000"`
	Interval string                   `mapstructure:"interval" default:"1h" validate:"oneof=1m 5m 15m 30m 1h 2h 4h 1d 1w"`
	Phase    analysis.PhaseThresholds `mapstructure:"phase"`
}

type MonitorConfig struct {
	Interval       time.Duration `mapstructure:"interval" default:"60s" validate:"gte=30s"`
	MaxConcurrency int           `mapstructure:"max_concurrency" default:"4" validate:"gte=1,lte=64"`
	StateFile      string        `mapstructure:"state_file" default:"~/.cryptosignal/state.yaml"`
	ResultBuffer   int           `mapstructure:"result_buffer" default:"16" validate:"gte=0"`
}

type CacheConfig struct {
	Type  string        `mapstructure:"type" default:"memory" validate:"oneof=none memory redis"`
	TTL   time.Duration `mapstructure:"ttl" default:"30s" validate:"gte=0"`
	Redis RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" default:"localhost:6379"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix" default:"cryptosignal"`
}

type PredictorConfig struct {
	Type string    `mapstructure:"type" default:"momentum" validate:"oneof=none momentum llm"`
	Bars int       `mapstructure:"bars" default:"30" validate:"gte=2"`
	LLM  LLMConfig `mapstructure:"llm"`
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider" validate:"omitempty,oneof=claude openai ollama"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint" default:"http://localhost:11434"`
	Model    string `mapstructure:"model"`
}

type SinksConfig struct {
	Console bool          `mapstructure:"console" default:"true"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Health  HealthConfig  `mapstructure:"health"`
}

// HealthConfig holds operational rules evaluated against every batch, e.g.
// "failed_pct > 50". Alerts go to the log and to any configured notifier.
type HealthConfig struct {
	Rules    []alert.Rule  `mapstructure:"rules" validate:"dive"`
	Cooldown time.Duration `mapstructure:"cooldown" default:"15m" validate:"gte=0"`
}

// ArchiveConfig selects where result batches are archived. An empty Type
// disables archiving.
type ArchiveConfig struct {
	Type string   `mapstructure:"type" validate:"omitempty,oneof=localfs s3"`
	Path string   `mapstructure:"path" default:"~/.cryptosignal/archive"`
	S3   S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region" default:"us-east-1"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix" default:"cryptosignal"`
}

// KafkaConfig enables the Kafka sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic" default:"cryptosignal.results"`
}

// NotifyConfig filters actionable decisions before they reach the
// notifiers. Each notifier is enabled by its own required field.
type NotifyConfig struct {
	MinConfidence float64        `mapstructure:"min_confidence" default:"60" validate:"gte=0,lte=100"`
	Cooldown      time.Duration  `mapstructure:"cooldown" default:"4h" validate:"gte=0"`
	Actions       []string       `mapstructure:"actions" validate:"dive,oneof=STRONG_BUY BUY SELL STRONG_SELL"`
	Webhook       WebhookConfig  `mapstructure:"webhook"`
	Telegram      TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig enables the webhook notifier when URL is set.
type WebhookConfig struct {
	URL     string            `mapstructure:"url" validate:"omitempty,url"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout" default:"10s" validate:"gt=0"`
}

// TelegramConfig enables the Telegram notifier when BotToken is set.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id" validate:"required_with=BotToken"`
}

type ServerConfig struct {
	Addr   string `mapstructure:"addr" default:":8080"`
	APIKey string `mapstructure:"api_key"`
}

type LogConfig struct {
	Debug bool `mapstructure:"debug"`
}

var validate = validator.New()

// Defaults returns settings populated from the struct defaults.
func Defaults() *Settings {
	s := &Settings{}
	if err := defaults.Set(s); err != nil {
		panic(fmt.Sprintf("config: invalid default tags: %v", err))
	}
	return s
}

// Load reads settings from path layered over the defaults. An empty path or
// a missing file yields the defaults. On a parse or validation failure the
// defaults are returned together with the error.
func Load(path string) (*Settings, error) {
	if path == "" {
		return Defaults(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Defaults(), nil
		}
		return Defaults(), core.Errorf(core.ErrConfigInvalid, "reading %s: %w", path, err)
	}

	// Expand ${VAR} references in string values
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if ok && strings.Contains(val, "${") {
			v.Set(key, os.ExpandEnv(val))
		}
	}

	s := Defaults()
	if err := v.Unmarshal(s); err != nil {
		return Defaults(), core.Errorf(core.ErrConfigInvalid, "decoding %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Defaults(), err
	}
	return s, nil
}

// LoadOrDefault loads path and logs any failure, falling back to the
// defaults.
func LoadOrDefault(path string, logger *zap.Logger) *Settings {
	s, err := Load(path)
	if err != nil {
		if logger == nil {
			logger = zap.NewNop()
		}
		logger.Warn("config unusable, using defaults", zap.String("path", path), zap.Error(err))
	}
	return s
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}

	if s.Predictor.Type == "llm" {
		switch s.Predictor.LLM.Provider {
		case "":
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("predictor.llm.provider required when predictor type is llm"))
		case "claude":
			if s.Predictor.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if s.Predictor.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if s.Predictor.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		}
	}

	for i := range s.Sinks.Health.Rules {
		if err := s.Sinks.Health.Rules[i].Validate(); err != nil {
			return err
		}
	}

	if s.Sinks.Archive.Type == "s3" && s.Sinks.Archive.S3.Bucket == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("sinks.archive.s3.bucket required when archive type is s3"))
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
