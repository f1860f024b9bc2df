package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither --config nor CONFIG_PATH is given.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Data struct {
		CSVPath        string   `yaml:"csv_path" default:"data/btc_data_enriched.csv" validate:"required"`
		SequenceLength int      `yaml:"sequence_length" default:"60" validate:"gt=0"`
		ATRWindow      int      `yaml:"atr_window" default:"14" validate:"gt=0"`
		Features       []string `yaml:"features" default:"[\"close\",\"ema30\",\"ema100\",\"rsi\"]" validate:"min=1,dive,required"`
	} `yaml:"data"`
	Model struct {
		Path       string `yaml:"path" default:"models/lstm_model.json" validate:"required"`
		ScalerPath string `yaml:"scaler_path" default:"models/scaler.json" validate:"required"`
	} `yaml:"model"`
	Source struct {
		BaseURL   string        `yaml:"base_url" default:"https://api.kraken.com" validate:"required,url"`
		Pair      string        `yaml:"pair" default:"XXBTZUSD" validate:"required"`
		Interval  int           `yaml:"interval" default:"1440" validate:"oneof=1 5 15 30 60 240 1440 10080 21600"`
		EMAShort  int           `yaml:"ema_short" default:"30" validate:"gt=0"`
		EMALong   int           `yaml:"ema_long" default:"100" validate:"gtfield=EMAShort"`
		RSIPeriod int           `yaml:"rsi_period" default:"14" validate:"gt=0"`
		ATRPeriod int           `yaml:"atr_period" default:"14" validate:"gt=0"`
		Timeout   time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	} `yaml:"source"`
	MarketContext struct {
		Enabled bool          `yaml:"enabled" default:"true"`
		BaseURL string        `yaml:"base_url" default:"https://api.coingecko.com/api/v3" validate:"required,url"`
		Timeout time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
	} `yaml:"market_context"`
	Output struct {
		LatestPath  string `yaml:"latest_path" default:"output/prediction.json"`
		HistoryPath string `yaml:"history_path" default:"output/predictions_log.csv"`
		DiffPath    string `yaml:"diff_path" default:"output/prediction_diff.csv"`
		ReportPath  string `yaml:"report_path" default:"output/prediction_report.txt"`
	} `yaml:"output"`
	Forward struct {
		URL     string        `yaml:"url" validate:"omitempty,url"`
		Token   string        `yaml:"token"`
		Timeout time.Duration `yaml:"timeout" default:"5s" validate:"gt=0"`
	} `yaml:"forward"`
	Telegram struct {
		BotToken   string `yaml:"bot_token"`
		ChatID     string `yaml:"chat_id"`
		MaxRetries int    `yaml:"max_retries" default:"2" validate:"gte=0,lte=10"`
	} `yaml:"telegram"`
	Hooks struct {
		PostRunCommand []string      `yaml:"post_run_command"`
		Timeout        time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	} `yaml:"hooks"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		TextfilePath string `yaml:"textfile_path"`
	} `yaml:"metrics"`
	Log struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format     string `yaml:"format" default:"console" validate:"oneof=console json"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb" default:"10" validate:"gt=0"`
		MaxBackups int    `yaml:"max_backups" default:"3" validate:"gte=0"`
		MaxAgeDays int    `yaml:"max_age_days" default:"28" validate:"gte=0"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

var validate = validator.New()

// Load applies struct defaults, then the YAML file (a missing file is not
// an error), then environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	overrides := []struct {
		env string
		dst *string
	}{
		{"TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken},
		{"TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID},
		{"FORWARD_URL", &cfg.Forward.URL},
		{"FORWARD_TOKEN", &cfg.Forward.Token},
		{"DATA_CSV", &cfg.Data.CSVPath},
		{"MODEL_PATH", &cfg.Model.Path},
		{"SCALER_PATH", &cfg.Model.ScalerPath},
		{"SQLITE_PATH", &cfg.Database.SQLitePath},
		{"LOG_LEVEL", &cfg.Log.Level},
		{"HTTPS_PROXY", &cfg.Proxy},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}

	return cfg, nil
}

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Path resolves the config file location from a flag value and CONFIG_PATH.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}
