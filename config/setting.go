package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3/log"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type serverConfig struct {
	Port        int    `koanf:"port" validate:"required"`
	Mode        string `koanf:"mode" validate:"required"`
	Concurrency int    `koanf:"concurrency"`
	BodyLimit   int    `koanf:"body_limit"`
	AppName     string `koanf:"app_name"`
}

type logLevel string

const (
	Debug logLevel = "debug"
	Info  logLevel = "info"
	Warn  logLevel = "warn"
	Error logLevel = "error"
	Fatal logLevel = "fatal"
	Panic logLevel = "panic"
)

// Module tags log lines and error codes with the subsystem they came from.
type Module string

const (
	ModuleSetting    Module = "setting"
	ModuleServer     Module = "server"
	ModuleDatabase   Module = "database"
	ModuleMilvus     Module = "milvus"
	ModuleIngest     Module = "ingest"
	ModuleRetriever  Module = "retriever"
	ModulePrompt     Module = "prompt"
	ModuleProvider   Module = "provider"
	ModuleLedger     Module = "ledger"
	ModuleMiner      Module = "miner"
	ModuleTrainer    Module = "trainer"
	ModuleEvaluator  Module = "evaluator"
	ModuleMastery    Module = "mastery"
	ModuleCurriculum Module = "curriculum"
	ModulePlanner    Module = "planner"
	ModuleAccess     Module = "access"
	ModuleS3         Module = "s3"
	ModuleRedis      Module = "redis"
)

type databaseConfig struct {
	Host         string `koanf:"host" validate:"required"`
	Port         int    `koanf:"port" validate:"required"`
	User         string `koanf:"user" validate:"required"`
	Password     string `koanf:"password"`
	Name         string `koanf:"name" validate:"required"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxLifetime  int    `koanf:"max_lifetime"`
}

type redisConfig struct {
	Address        string `koanf:"address"`
	Password       string `koanf:"password"`
	DB             int    `koanf:"db"`
	RequestsPerMin int    `koanf:"requests_per_min"`
	WindowSeconds  int    `koanf:"window_seconds"`
}

// ProviderConfig is one row of the closed LLM provider table.
type ProviderConfig struct {
	Endpoint       string `koanf:"endpoint"`
	Key            string `koanf:"key"`
	Model          string `koanf:"model"`
	EmbeddingModel string `koanf:"embedding_model"`
	Enabled        bool   `koanf:"enabled"`
	Priority       int    `koanf:"priority"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

type milvusConfig struct {
	Address         string          `koanf:"address" validate:"required"`
	VectorDim       int             `koanf:"vector_dim" validate:"required"`
	IndexHNSWConfig indexHNSWConfig `koanf:"index_hnsw_config"`
}

type indexHNSWConfig struct {
	MetricType     string `koanf:"metric_type"`
	M              int    `koanf:"m"`
	EfConstruction int    `koanf:"ef_construction"`
}

type s3Config struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Region    string `koanf:"region"`
	UseSSL    bool   `koanf:"use_ssl"`
	Bucket    string `koanf:"bucket"`
}

type ingestConfig struct {
	ChunkTargetChars int `koanf:"chunk_target_chars"`
	ChunkMinChars    int `koanf:"chunk_min_chars"`
	ChunkMaxChars    int `koanf:"chunk_max_chars"`
	ChunkOverlap     int `koanf:"chunk_overlap"`
	EmbedRetries     int `koanf:"embed_retries"`
	EmbedTimeoutSecs int `koanf:"embed_timeout_secs"`
}

type promptConfig struct {
	TokenCap     int `koanf:"token_cap"`
	HistoryTurns int `koanf:"history_turns"`
}

// autolearnConfig drives the ledger -> miner -> trainer -> promotion loop.
type autolearnConfig struct {
	ExportDir            string  `koanf:"export_dir"`
	ConfidenceThreshold  float64 `koanf:"confidence_threshold"`
	ExampleTokenCap      int     `koanf:"example_token_cap"`
	MinDataForTraining   int     `koanf:"min_data_for_training"`
	TrainingIntervalDays int     `koanf:"training_interval_days"`
	CheckIntervalHours   int     `koanf:"check_interval_hours"`
	BaseModel            string  `koanf:"base_model"`
	AutoDeployThreshold  float64 `koanf:"auto_deploy_threshold"`
	PromotionMargin      float64 `koanf:"promotion_margin"`
}

type plannerConfig struct {
	UpcomingTopics int     `koanf:"upcoming_topics"`
	PaceFactor     float64 `koanf:"pace_factor"`
}

type accessConfig struct {
	Enforce     bool `koanf:"enforce"`
	StaffBypass bool `koanf:"staff_bypass"`
}

type config struct {
	Server    serverConfig    `koanf:"server"`
	Database  databaseConfig  `koanf:"database"`
	Redis     redisConfig     `koanf:"redis"`
	OpenAI    ProviderConfig  `koanf:"openai"`
	DeepSeek  ProviderConfig  `koanf:"deepseek"`
	Milvus    milvusConfig    `koanf:"milvus"`
	S3        s3Config        `koanf:"s3"`
	Ingest    ingestConfig    `koanf:"ingest"`
	Prompt    promptConfig    `koanf:"prompt"`
	Autolearn autolearnConfig `koanf:"autolearn"`
	Planner   plannerConfig   `koanf:"planner"`
	Access    accessConfig    `koanf:"access"`
	LogLevel  logLevel        `koanf:"log_level"`
	Dns       string          `koanf:"dns"`
}

func buildMySQLDSN(cfg databaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)
}

var defaultConfig = config{
	Server: serverConfig{
		Port:        8000,
		Mode:        "release",
		Concurrency: 256,
		BodyLimit:   50 * 1024 * 1024,
		AppName:     "aiogretmen",
	},
	Database: databaseConfig{
		Host:         "127.0.0.1",
		Port:         3306,
		User:         "root",
		Password:     "",
		Name:         "aiogretmen",
		MaxIdleConns: 4,
		MaxOpenConns: 32,
		MaxLifetime:  30,
	},
	Redis: redisConfig{
		Address:        "localhost:6379",
		RequestsPerMin: 30,
		WindowSeconds:  60,
	},
	OpenAI: ProviderConfig{
		Endpoint:       "https://api.openai.com/v1",
		Model:          "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		Enabled:        true,
		Priority:       1,
		TimeoutSeconds: 20,
	},
	DeepSeek: ProviderConfig{
		Endpoint:       "https://api.deepseek.com/v1",
		Model:          "deepseek-chat",
		Enabled:        true,
		Priority:       2,
		TimeoutSeconds: 25,
	},
	Milvus: milvusConfig{
		Address:   "localhost:19530",
		VectorDim: 1536,
		IndexHNSWConfig: indexHNSWConfig{
			MetricType:     "COSINE",
			M:              16,
			EfConstruction: 128,
		},
	},
	S3: s3Config{
		Endpoint:  "http://localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Region:    "us-east-1",
		UseSSL:    false,
		Bucket:    "",
	},
	Ingest: ingestConfig{
		ChunkTargetChars: 1000,
		ChunkMinChars:    500,
		ChunkMaxChars:    1500,
		ChunkOverlap:     120,
		EmbedRetries:     3,
		EmbedTimeoutSecs: 60,
	},
	Prompt: promptConfig{
		TokenCap:     3500,
		HistoryTurns: 5,
	},
	Autolearn: autolearnConfig{
		ExportDir:            "storage/training",
		ConfidenceThreshold:  0.7,
		ExampleTokenCap:      2048,
		MinDataForTraining:   50,
		TrainingIntervalDays: 7,
		CheckIntervalHours:   6,
		BaseModel:            "gpt-4o-mini",
		AutoDeployThreshold:  0.75,
		PromotionMargin:      0.02,
	},
	Planner: plannerConfig{
		UpcomingTopics: 3,
		PaceFactor:     1.0,
	},
	Access: accessConfig{
		Enforce:     true,
		StaffBypass: true,
	},
	LogLevel: Info,
}

var (
	Cfg  = defaultConfig
	once sync.Once
)

// Init loads config from the given yaml path plus APP_* env overrides.
// Safe to call more than once; only the first call loads.
func Init(path string) error {
	var loadErr error
	once.Do(func() {
		loadErr = load(path)
	})
	return loadErr
}

func init() {
	_ = Init("config.yaml")
}

func load(path string) error {
	k := koanf.New(".")
	validate := validator.New()

	Cfg = defaultConfig

	// file
	if e := k.Load(file.Provider(path), yaml.Parser()); e != nil && !os.IsNotExist(e) {
		return e
	}

	// env: APP_SERVER_PORT -> server.port
	if e := k.Load(env.Provider("APP_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "APP_")), "_", ".")
	}), nil); e != nil {
		return e
	}

	// bind
	if e := k.Unmarshal("", &Cfg); e != nil {
		log.Errorf("failed to unmarshal config: %v", e)
		return e
	}

	if Cfg.Dns == "" {
		Cfg.Dns = buildMySQLDSN(Cfg.Database)
	}

	if err := validate.Struct(Cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			var sb strings.Builder
			sb.WriteString(fmt.Sprintf("%v config validation failed:\n", ModuleSetting))
			for _, e := range errs {
				sb.WriteString(
					fmt.Sprintf("  - %s: failed '%s' (value: %v)\n", e.Field(), e.Tag(), e.Value()),
				)
			}
			log.Error(sb.String())
		} else {
			log.Errorf("config validation failed: %v", err)
		}
	}
	return nil
}
