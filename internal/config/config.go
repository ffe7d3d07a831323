package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of both binaries. The control plane reads
// the postgres, minio, kafka and api sections; the engine additionally
// reads the vision, assessor, scheduler, pipeline, metrics and alerts
// sections.
type Config struct {
	Postgres struct {
		DSN string `yaml:"dsn" env:"DATABASE_DSN"`
	} `yaml:"postgres"`

	Minio struct {
		Endpoint        string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey       string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
		SecretKey       string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
		FrameBucket     string `yaml:"frame_bucket" env:"MINIO_FRAME_BUCKET"`
		VerdictBucket   string `yaml:"verdict_bucket" env:"MINIO_VERDICT_BUCKET"`
		AnnotatedBucket string `yaml:"annotated_bucket" env:"MINIO_ANNOTATED_BUCKET"`
	} `yaml:"minio"`

	Kafka struct {
		Brokers        []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		GroupID        string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
		CommandTopic   string   `yaml:"command_topic" env:"COMMAND_TOPIC"`
		HeartbeatTopic string   `yaml:"heartbeat_topic" env:"HEARTBEAT_TOPIC"`
		VerdictTopic   string   `yaml:"verdict_topic" env:"VERDICT_TOPIC"`
	} `yaml:"kafka"`

	Detector struct {
		Kind          string  `yaml:"kind" env:"DETECTOR_KIND"`
		Endpoint      string  `yaml:"endpoint" env:"DETECTOR_ENDPOINT"`
		MinConfidence float64 `yaml:"min_confidence" env:"DETECTOR_MIN_CONFIDENCE"`
	} `yaml:"detector"`

	Describer struct {
		Kind     string `yaml:"kind" env:"DESCRIBER_KIND"`
		Endpoint string `yaml:"endpoint" env:"DESCRIBER_ENDPOINT"`
		Prompt   string `yaml:"prompt" env:"DESCRIBER_PROMPT"`
	} `yaml:"describer"`

	Assessor struct {
		RelevantClasses []string `yaml:"relevant_classes" env:"RELEVANT_CLASSES" envSeparator:","`
		Keywords        []string `yaml:"keywords" env:"THREAT_KEYWORDS" envSeparator:","`
		KeywordBoost    float64  `yaml:"keyword_boost" env:"KEYWORD_BOOST"`
		Thresholds      struct {
			Low      float64 `yaml:"low" env:"THRESHOLD_LOW"`
			Medium   float64 `yaml:"medium" env:"THRESHOLD_MEDIUM"`
			High     float64 `yaml:"high" env:"THRESHOLD_HIGH"`
			Critical float64 `yaml:"critical" env:"THRESHOLD_CRITICAL"`
		} `yaml:"thresholds"`
	} `yaml:"assessor"`

	Scheduler struct {
		SkipInterval   int     `yaml:"skip_interval" env:"SKIP_INTERVAL"`
		TargetBudgetMS float64 `yaml:"target_budget_ms" env:"TARGET_BUDGET_MS"`
		MaxInterval    int     `yaml:"max_interval" env:"MAX_INTERVAL"`
	} `yaml:"scheduler"`

	Pipeline struct {
		InferenceTimeoutMS int `yaml:"inference_timeout_ms" env:"INFERENCE_TIMEOUT_MS"`
	} `yaml:"pipeline"`

	Metrics struct {
		WindowSize int    `yaml:"window_size" env:"METRICS_WINDOW_SIZE"`
		Addr       string `yaml:"addr" env:"METRICS_ADDR"`
	} `yaml:"metrics"`

	Alerts struct {
		Broker   string `yaml:"broker" env:"MQTT_BROKER"`
		ClientID string `yaml:"client_id" env:"MQTT_CLIENT_ID"`
		Topic    string `yaml:"topic" env:"MQTT_TOPIC"`
		MinLevel string `yaml:"min_level" env:"ALERT_MIN_LEVEL"`
	} `yaml:"alerts"`

	API struct {
		Addr string `yaml:"addr" env:"API_ADDR"`
	} `yaml:"api"`
}

// LoadConfig reads a YAML file and applies environment overrides on
// top. A bare filename is resolved inside internal/config; a path is
// used as given.
func LoadConfig(filename string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if filename == "" {
		filename = "local.yaml"
	}
	path := filename
	if !strings.ContainsRune(filename, filepath.Separator) {
		path = filepath.Join("internal", "config", filename)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills the knobs a minimal file may omit.
func applyDefaults(cfg *Config) {
	if len(cfg.Assessor.RelevantClasses) == 0 {
		cfg.Assessor.RelevantClasses = []string{"drone", "uav", "airplane", "helicopter", "bird"}
	}
	if len(cfg.Assessor.Keywords) == 0 {
		cfg.Assessor.Keywords = []string{"weapon", "attack", "explosive", "suspicious", "unauthorized", "danger", "intruder"}
	}
	if cfg.Assessor.KeywordBoost == 0 {
		cfg.Assessor.KeywordBoost = 0.25
	}
	if cfg.Assessor.Thresholds.Low == 0 {
		cfg.Assessor.Thresholds.Low = 0.3
	}
	if cfg.Assessor.Thresholds.Medium == 0 {
		cfg.Assessor.Thresholds.Medium = 0.5
	}
	if cfg.Assessor.Thresholds.High == 0 {
		cfg.Assessor.Thresholds.High = 0.7
	}
	if cfg.Assessor.Thresholds.Critical == 0 {
		cfg.Assessor.Thresholds.Critical = 0.9
	}
	if cfg.Scheduler.SkipInterval == 0 {
		cfg.Scheduler.SkipInterval = 5
	}
	if cfg.Detector.Kind == "" {
		cfg.Detector.Kind = "http"
	}
	if cfg.Detector.MinConfidence == 0 {
		cfg.Detector.MinConfidence = 0.25
	}
	if cfg.Describer.Kind == "" {
		cfg.Describer.Kind = "http"
	}
	if cfg.Describer.Prompt == "" {
		cfg.Describer.Prompt = "Describe any aerial objects and activity in this scene."
	}
	if cfg.Minio.FrameBucket == "" {
		cfg.Minio.FrameBucket = "frames"
	}
	if cfg.Minio.VerdictBucket == "" {
		cfg.Minio.VerdictBucket = "verdicts"
	}
	if cfg.Minio.AnnotatedBucket == "" {
		cfg.Minio.AnnotatedBucket = "annotated"
	}
	if cfg.Alerts.Topic == "" {
		cfg.Alerts.Topic = "threats/alerts"
	}
	if cfg.Alerts.MinLevel == "" {
		cfg.Alerts.MinLevel = "high"
	}
	if cfg.API.Addr == "" {
		cfg.API.Addr = ":8002"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9102"
	}
}
