package config

import (
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"FeedNotify/tools"
	"FeedNotify/tools/decode"
	errs "FeedNotify/tools/errs"

	"go.yaml.in/yaml/v3"
)

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Origins         []string      `yaml:"origins"`
}

type StoreConfig struct {
	// Backend is "redis" or "memory".
	Backend string `yaml:"backend"`
}

type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	OpTimeout   time.Duration `yaml:"op_timeout"`
}

type NotifyConfig struct {
	Periods          []int  `yaml:"periods"`
	Limit            int    `yaml:"limit"`
	Timezone         string `yaml:"timezone"`
	DrainConcurrency int    `yaml:"drain_concurrency"`
}

type NATSConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Servers  []string `yaml:"servers"`
	Name     string   `yaml:"name"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	Subject  string   `yaml:"subject"`
	// Mode is "core" or "jetstream".
	Mode    string        `yaml:"mode"`
	Queue   string        `yaml:"queue"`
	Durable string        `yaml:"durable"`
	AckWait time.Duration `yaml:"ack_wait"`
	// Dedupe drops redelivered messages by Nats-Msg-Id.
	Dedupe    bool          `yaml:"dedupe"`
	DedupeTTL time.Duration `yaml:"dedupe_ttl"`
}

type KafkaConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Brokers           []string `yaml:"brokers"`
	GroupID           string   `yaml:"group_id"`
	Topic             string   `yaml:"topic"`
	Version           string   `yaml:"version"`
	InitialOffset     string   `yaml:"initial_offset"`
	Compression       string   `yaml:"compression"`
	Retries           int      `yaml:"retries"`
	EnsureTopics      bool     `yaml:"ensure_topics"`
	Partitions        int32    `yaml:"partitions"`
	ReplicationFactor int16    `yaml:"replication_factor"`
}

type SchedulerConfig struct {
	Enabled bool          `yaml:"enabled"`
	Spec    string        `yaml:"spec"`
	Timeout time.Duration `yaml:"timeout"`
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
	Alg     string `yaml:"alg"`
	Issuer  string `yaml:"issuer"`
	Header  string `yaml:"header"`
}

type SinkConfig struct {
	// Kind is "log", "nats" or "kafka".
	Kind      string `yaml:"kind"`
	Subject   string `yaml:"subject"`
	Topic     string `yaml:"topic"`
	SkipEmpty bool   `yaml:"skip_empty"`
}

type NacosConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host"`
	Port      uint64 `yaml:"port"`
	Namespace string `yaml:"namespace"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	DataID    string `yaml:"data_id"`
	Group     string `yaml:"group"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the whole process configuration.
type AppConfig struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Notify    NotifyConfig    `yaml:"notify"`
	NATS      NATSConfig      `yaml:"nats"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Auth      AuthConfig      `yaml:"auth"`
	Sink      SinkConfig      `yaml:"sink"`
	Nacos     NacosConfig     `yaml:"nacos"`
	Log       LogConfig       `yaml:"log"`
}

const DefaultSubject = "seguir-notify"

func Default() AppConfig {
	return AppConfig{
		HTTP:  HTTPConfig{Addr: ":3000", ShutdownTimeout: 10 * time.Second},
		Store: StoreConfig{Backend: "redis"},
		Redis: RedisConfig{
			Addr:        "127.0.0.1:6379",
			PoolSize:    20,
			DialTimeout: 5 * time.Second,
			OpTimeout:   3 * time.Second,
		},
		Notify: NotifyConfig{
			Periods:          []int{1, 3, 5},
			Limit:            20,
			Timezone:         "UTC",
			DrainConcurrency: 8,
		},
		NATS: NATSConfig{
			Servers:   []string{"nats://127.0.0.1:4222"},
			Name:      "seguir-notify",
			Subject:   DefaultSubject,
			Mode:      "core",
			Queue:     "seguir-notify",
			AckWait:   30 * time.Second,
			DedupeTTL: 10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"127.0.0.1:9092"},
			GroupID:       "seguir-notify",
			Topic:         DefaultSubject,
			Version:       "2.1.0",
			InitialOffset: "newest",
			Compression:   "snappy",
			Retries:       5,
			Partitions:    8,
		},
		Scheduler: SchedulerConfig{Enabled: true, Spec: "0 * * * *", Timeout: 5 * time.Minute},
		Auth:      AuthConfig{Alg: "HS256"},
		Sink: SinkConfig{
			Kind:    "log",
			Subject: "seguir-notify.digest",
			Topic:   "seguir-notify-digest",
		},
		Nacos: NacosConfig{Port: 8848, Group: "DEFAULT_GROUP"},
		Log:   LogConfig{Level: "info"},
	}
}

// Remote fetches config content from a config centre.
type Remote func(NacosConfig) (string, error)

// Load builds the configuration: defaults, then the YAML file at path (when
// path is not empty), then the remote document when nacos is enabled, then
// environment overrides. The result is validated.
func Load(path string, remote Remote) (AppConfig, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, errs.ErrValidation.WrapErr(err, "read config file", "path", path)
		}
		if err := Merge(&cfg, b); err != nil {
			return cfg, err
		}
	}
	if cfg.Nacos.Enabled && remote != nil {
		content, err := remote(cfg.Nacos)
		if err != nil {
			return cfg, err
		}
		if err := Merge(&cfg, []byte(content)); err != nil {
			return cfg, err
		}
	}
	ApplyEnv(&cfg)
	return cfg, cfg.Validate()
}

// Merge overlays YAML content onto cfg. Keys the document does not mention
// keep their current values.
func Merge(cfg *AppConfig, content []byte) error {
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil
	}
	var m map[string]any
	if err := yaml.Unmarshal(content, &m); err != nil {
		return errs.ErrValidation.WrapErr(err, "parse yaml config")
	}
	opts := decode.DefaultOptions()
	opts.ErrorUnused = true
	if err := decode.Into(m, cfg, opts); err != nil {
		return errs.ErrValidation.WrapErr(err, "decode config")
	}
	return nil
}

// ApplyEnv applies the deployment overrides.
func ApplyEnv(cfg *AppConfig) {
	cfg.Redis.Addr = tools.GetEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = tools.GetEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.HTTP.Addr = tools.GetEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.NATS.Servers = tools.GetEnvList("NATS_SERVERS", cfg.NATS.Servers)
	cfg.Kafka.Brokers = tools.GetEnvList("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Store.Backend = tools.GetEnv("STORE_BACKEND", cfg.Store.Backend)
	cfg.Log.Level = tools.GetEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Auth.Secret = tools.GetEnv("AUTH_SECRET", cfg.Auth.Secret)
	cfg.Notify.Limit = tools.GetEnvInt("NOTIFY_LIMIT", cfg.Notify.Limit)
	cfg.Scheduler.Enabled = tools.GetEnvBool("SCHEDULER_ENABLED", cfg.Scheduler.Enabled)
}

func (c AppConfig) Validate() error {
	if len(c.Notify.Periods) == 0 {
		return errs.ErrValidation.WrapMsg("notify.periods must not be empty")
	}
	for i, p := range c.Notify.Periods {
		if p <= 0 {
			return errs.ErrValidation.WrapMsg("notify.periods must be positive", "index", i, "period", p)
		}
		if i > 0 && p <= c.Notify.Periods[i-1] {
			return errs.ErrValidation.WrapMsg("notify.periods must be strictly increasing", "index", i, "period", p)
		}
	}
	if c.Notify.Limit < 1 {
		return errs.ErrValidation.WrapMsg("notify.limit must be at least 1", "limit", c.Notify.Limit)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.Store.Backend {
	case "redis", "memory":
	default:
		return errs.ErrValidation.WrapMsg("unknown store.backend", "backend", c.Store.Backend)
	}
	switch c.Sink.Kind {
	case "log":
	case "nats":
		if len(c.NATS.Servers) == 0 {
			return errs.ErrValidation.WrapMsg("sink.kind nats needs nats.servers")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return errs.ErrValidation.WrapMsg("sink.kind kafka needs kafka.brokers")
		}
	default:
		return errs.ErrValidation.WrapMsg("unknown sink.kind", "kind", c.Sink.Kind)
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return errs.ErrValidation.WrapMsg("auth.enabled needs auth.secret")
	}
	if c.Nacos.Enabled && (c.Nacos.Host == "" || c.Nacos.DataID == "") {
		return errs.ErrValidation.WrapMsg("nacos.enabled needs nacos.host and nacos.data_id")
	}
	return nil
}

// Location resolves notify.timezone.
func (c AppConfig) Location() (*time.Location, error) {
	if c.Notify.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Notify.Timezone)
	if err != nil {
		return nil, errs.ErrValidation.WrapErr(err, "notify.timezone", "timezone", c.Notify.Timezone)
	}
	return loc, nil
}
