package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config is the process-wide configuration tree, read once at startup and
// treated as immutable thereafter (§5, "Configuration ... is read-only
// after startup").
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Business BusinessConfig `mapstructure:"business"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
}

// AnalysisConfig configures the external collaborators behind
// AnalysisEngine (LLM summarization and web search); both are optional
// and left empty when the deployment doesn't use premium_insights.
type AnalysisConfig struct {
	LLMBaseURL       string `mapstructure:"llm_base_url"`
	LLMAPIKey        string `mapstructure:"llm_api_key"`
	LLMModel         string `mapstructure:"llm_model"`
	WebSearchBaseURL string `mapstructure:"web_search_base_url"`
	WebSearchAPIKey  string `mapstructure:"web_search_api_key"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	TokenLifecycle string `mapstructure:"token_lifecycle"`
}

// GatewayConfig holds the third-party payment gateway credentials and
// endpoint selection (§6, "Configuration inputs").
type GatewayConfig struct {
	ClientID       string `mapstructure:"client_id"`
	SecretKey      string `mapstructure:"secret_key"`
	MerchantCode   string `mapstructure:"merchant_code"`
	PayItemID      string `mapstructure:"pay_item_id"`
	Mode           string `mapstructure:"mode"` // TEST or LIVE
	ReturnURL      string `mapstructure:"return_url"`
	TokenBaseURL   string `mapstructure:"token_base_url"`
	PaymentBaseURL string `mapstructure:"payment_base_url"`
	APIBaseURL     string `mapstructure:"api_base_url"`
}

// PricingConfig is the §3 PricingConfig entity, loaded at startup.
type PricingConfig struct {
	Currency          string  `mapstructure:"currency"`
	TokensPerUnitMoney float64 `mapstructure:"tokens_per_unit_money"`
	MinPurchaseMoney  float64 `mapstructure:"min_purchase_money"`
	MaxPurchaseMoney  float64 `mapstructure:"max_purchase_money"`
	FreeGrantTokens   int64   `mapstructure:"free_grant_tokens"`
	StrictPricing     bool    `mapstructure:"strict_pricing"`
	ServiceCosts      map[string]int64 `mapstructure:"service_costs"`
}

type BusinessConfig struct {
	TransactionTTLMinutes int `mapstructure:"transaction_ttl_minutes"`
	MaxRetryCount         int `mapstructure:"max_retry_count"`
}

var GlobalConfig *Config

// LoadConfig reads the YAML configuration file and overlays any matching
// environment variables, the way the teacher loads BusinessConfig via
// viper — generalized here because the core's configuration inputs (§6)
// are explicitly allowed to arrive as process env.
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}

	GlobalConfig = cfg
	return cfg
}
