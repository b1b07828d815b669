package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/uncertaindrop/tickethelper/internal/technician"
	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

type Config struct {
	CRM         CRMConfig        `yaml:"crm"`
	Browser     BrowserConfig    `yaml:"browser"`
	Workflow    WorkflowConfig   `yaml:"workflow"`
	Runner      RunnerConfig     `yaml:"runner"`
	Technicians technician.Pools `yaml:"technicians"`
	Stores      StoresConfig     `yaml:"stores"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Postgres    PostgresConfig   `yaml:"postgres"`
	LogLevel    string           `yaml:"log_level"`
}

type CRMConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	CookiePath    string        `yaml:"cookie_path"`
	LoginAttempts int           `yaml:"login_attempts"`
	LoginTimeout  time.Duration `yaml:"login_timeout"`
}

type BrowserConfig struct {
	Headless    bool          `yaml:"headless"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
}

type WorkflowConfig struct {
	StepRetries    int                        `yaml:"step_retries"`
	ConfirmTimeout time.Duration              `yaml:"confirm_timeout"`
	ArtifactDir    string                     `yaml:"artifact_dir"`
	// StatusSequences overrides the default status progression per ticket
	// type. Keys are ticket type names.
	StatusSequences map[ticket.Type][]string `yaml:"status_sequences"`
}

type RunnerConfig struct {
	InboxDir     string        `yaml:"inbox_dir"`
	DoneDir      string        `yaml:"done_dir"`
	FailedDir    string        `yaml:"failed_dir"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type StoresConfig struct {
	// Aliases maps a store ID to the free-text fragments that identify it
	// on an invoice when no direct store token is printed.
	Aliases map[string][]string `yaml:"aliases"`
	// Names maps store IDs to the CRM's display names.
	Names map[string]string `yaml:"names"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	OutcomeTopic string   `yaml:"outcome_topic"`
	StatusTopic  string   `yaml:"status_topic"`
}

type PostgresConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ConnString string `yaml:"conn_string"`
}

func Load() (*Config, error) {
	cfg := &Config{
		CRM: CRMConfig{
			BaseURL:       "https://pmm.irepair.gr",
			CookiePath:    "cookies.json",
			LoginAttempts: 2,
			LoginTimeout:  10 * time.Minute,
		},
		Browser: BrowserConfig{
			Headless:    true,
			WaitTimeout: 20 * time.Second,
		},
		Workflow: WorkflowConfig{
			StepRetries:    2,
			ConfirmTimeout: 30 * time.Second,
			ArtifactDir:    "artifacts",
		},
		Runner: RunnerConfig{
			InboxDir:     "inbox",
			DoneDir:      "done",
			FailedDir:    "failed",
			PollInterval: 10 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			OutcomeTopic: "ticket-outcomes",
			StatusTopic:  "ticket-status-advances",
		},
		Postgres: PostgresConfig{
			ConnString: "postgres://localhost:5432/tickethelper",
		},
		LogLevel: "info",
	}

	// Load from YAML if exists
	if data, err := os.ReadFile("config.yaml"); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment
	if v := os.Getenv("CRM_BASE_URL"); v != "" {
		cfg.CRM.BaseURL = v
	}
	if v := os.Getenv("CRM_USERNAME"); v != "" {
		cfg.CRM.Username = v
	}
	if v := os.Getenv("CRM_PASSWORD"); v != "" {
		cfg.CRM.Password = v
	}
	if v := os.Getenv("COOKIE_PATH"); v != "" {
		cfg.CRM.CookiePath = v
	}
	if v := os.Getenv("INBOX_DIR"); v != "" {
		cfg.Runner.InboxDir = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("POSTGRES_CONN_STRING"); v != "" {
		cfg.Postgres.ConnString = v
		cfg.Postgres.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.CRM.BaseURL == "" {
		return fmt.Errorf("crm.base_url is required")
	}
	for store, byType := range c.Technicians {
		for typ, pool := range byType {
			if !typ.Valid() {
				return fmt.Errorf("technicians[%s]: unknown ticket type %q", store, typ)
			}
			if len(pool) == 0 {
				return fmt.Errorf("technicians[%s][%s]: empty pool", store, typ)
			}
		}
	}
	for typ := range c.Workflow.StatusSequences {
		if !typ.Valid() {
			return fmt.Errorf("status_sequences: unknown ticket type %q", typ)
		}
	}
	return nil
}
