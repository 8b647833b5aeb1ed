package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const defaultRegressionEndpoint = "https://adb-2869758279805397.17.azuredatabricks.net/serving-endpoints/New_MPCDC_Regression_Endpoint/invocations"

type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	EquivalenceCSVPath string `yaml:"equivalence_csv_path"`

	RegressionEndpoint string `yaml:"regression_endpoint"`
	RegressionToken    string `yaml:"regression_token"`

	// Chat assistant backend. When DatabricksToken is empty the
	// assistant runs in demo mode with canned responses;
	// classification is unaffected.
	ChatProvider    string `yaml:"chat_provider"`
	ChatEndpoint    string `yaml:"chat_endpoint"`
	DatabricksToken string `yaml:"databricks_token"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	ChatModel       string `yaml:"chat_model"`

	DBPath string `yaml:"db_path"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	AlertChannelID string `yaml:"alert_channel_id"`

	QualitySummarySchedule string `yaml:"quality_summary_schedule"`
	ChatProbeSchedule      string `yaml:"chat_probe_schedule"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.EquivalenceCSVPath, "EQUIVALENCE_CSV_PATH")
	envOverride(&cfg.RegressionEndpoint, "MPCDC_REGRESSION_ENDPOINT")
	envOverride(&cfg.RegressionToken, "MPCDC_REGRESSION_TOKEN")
	envOverride(&cfg.ChatProvider, "CHAT_PROVIDER")
	envOverride(&cfg.ChatEndpoint, "DATABRICKS_ENDPOINT")
	envOverride(&cfg.DatabricksToken, "DATABRICKS_TOKEN")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.ChatModel, "CHAT_MODEL")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.AlertChannelID, "ALERT_CHANNEL_ID")
	envOverride(&cfg.QualitySummarySchedule, "QUALITY_SUMMARY_SCHEDULE")
	envOverride(&cfg.ChatProbeSchedule, "CHAT_PROBE_SCHEDULE")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":5000"
	}
	if cfg.EquivalenceCSVPath == "" {
		cfg.EquivalenceCSVPath = "AI_Failure_Prediction_and_Prevention_for_CTTI.csv"
	}
	if cfg.RegressionEndpoint == "" {
		cfg.RegressionEndpoint = defaultRegressionEndpoint
	}
	if cfg.RegressionToken == "" {
		// Single-token deployments reuse the Databricks token for the
		// regression endpoint.
		cfg.RegressionToken = cfg.DatabricksToken
	}
	if cfg.ChatProvider == "" {
		cfg.ChatProvider = "databricks"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "claude-sonnet-4-5-20250929"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./mpcdc.db"
	}
	if cfg.QualitySummarySchedule == "" {
		cfg.QualitySummarySchedule = "0 8 * * *"
	}
	if cfg.ChatProbeSchedule == "" {
		cfg.ChatProbeSchedule = "*/30 * * * *"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)
	}

	// Validate
	switch cfg.ChatProvider {
	case "databricks", "anthropic":
	default:
		log.Fatalf("chat_provider must be 'databricks' or 'anthropic', got '%s'", cfg.ChatProvider)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 1 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 1", cfg.ExternalHTTPTimeoutSeconds)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cfg.QualitySummarySchedule); err != nil {
		log.Fatalf("invalid quality_summary_schedule '%s': %v", cfg.QualitySummarySchedule, err)
	}
	if _, err := parser.Parse(cfg.ChatProbeSchedule); err != nil {
		log.Fatalf("invalid chat_probe_schedule '%s': %v", cfg.ChatProbeSchedule, err)
	}

	return cfg
}

// ChatConfigured reports whether the assistant has credentials for a
// real backend; otherwise it serves canned demo responses.
func (c Config) ChatConfigured() bool {
	if c.ChatProvider == "anthropic" {
		return c.AnthropicAPIKey != ""
	}
	return c.DatabricksToken != ""
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
