package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so cadences can be written as "1h" or
// "30m" in the YAML file.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	API       APIConfig       `yaml:"api"`
	Worker    WorkerConfig    `yaml:"worker"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Retention RetentionConfig `yaml:"retention"`
}

type APIConfig struct {
	Addr             string `yaml:"addr"`
	RateLimitPerMin  int    `yaml:"rate_limit_per_min"`
	RateLimitBurst   int    `yaml:"rate_limit_burst"`
	MutationQuotaMin int    `yaml:"mutation_quota_per_min"`
}

type WorkerConfig struct {
	Addr string `yaml:"addr"`
}

type KafkaConfig struct {
	RecordCreatedTopic string `yaml:"record_created_topic"`
	ConsumerGroup      string `yaml:"consumer_group"`
}

type SchedulerConfig struct {
	ProcessDueEvery         Duration `yaml:"process_due_every"`
	GenerateWeeklyEvery     Duration `yaml:"generate_weekly_every"`
	GeneratePreventiveEvery Duration `yaml:"generate_preventive_every"`
	GenerateFrequentEvery   Duration `yaml:"generate_frequent_every"`
	CleanupExpiredEvery     Duration `yaml:"cleanup_expired_every"`
	AutoDismissEvery        Duration `yaml:"auto_dismiss_every"`
	HealthCheckEvery        Duration `yaml:"health_check_every"`
	HardTimeout             Duration `yaml:"hard_timeout"`
	SoftTimeout             Duration `yaml:"soft_timeout"`
}

type RetentionConfig struct {
	StaleAlertDays     int `yaml:"stale_alert_days"`
	DefaultCleanupDays int `yaml:"default_cleanup_days"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration, used when no file is given.
func Default() *Config { return defaultConfig() }

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Addr:             ":3000",
			RateLimitPerMin:  120,
			RateLimitBurst:   30,
			MutationQuotaMin: 60,
		},
		Worker: WorkerConfig{Addr: ":3001"},
		Kafka: KafkaConfig{
			RecordCreatedTopic: "records.created",
			ConsumerGroup:      "alerts",
		},
		Scheduler: SchedulerConfig{
			ProcessDueEvery:         Duration(time.Hour),
			GenerateWeeklyEvery:     Duration(24 * time.Hour),
			GeneratePreventiveEvery: Duration(24 * time.Hour),
			GenerateFrequentEvery:   Duration(24 * time.Hour),
			CleanupExpiredEvery:     Duration(24 * time.Hour),
			AutoDismissEvery:        Duration(7 * 24 * time.Hour),
			HealthCheckEvery:        Duration(24 * time.Hour),
			HardTimeout:             Duration(30 * time.Minute),
			SoftTimeout:             Duration(25 * time.Minute),
		},
		Retention: RetentionConfig{
			StaleAlertDays:     30,
			DefaultCleanupDays: 30,
		},
	}
}
