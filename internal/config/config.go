package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-bank-ledger/pkg/logger"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
	"github.com/JoeShih716/go-bank-ledger/pkg/postgres"
)

// EnvPrefix 環境變數前綴，例如 LEDGER_LEDGER_BACKEND=mysql
const EnvPrefix = "LEDGER"

const (
	BackendMemory   = "memory"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
)

// Config 服務設定
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Log      logger.Config   `yaml:"log"`
	Ledger   LedgerConfig    `yaml:"ledger"`
	MySQL    mysql.Config    `yaml:"mysql"`
	Postgres postgres.Config `yaml:"postgres"`
	Redis    RedisConfig     `yaml:"redis"`
	Seed     SeedConfig      `yaml:"seed"`
}

type ServerConfig struct {
	GRPCAddr        string        `yaml:"grpc_addr" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

// LedgerConfig 儲存後端與重試策略
type LedgerConfig struct {
	Backend        string        `yaml:"backend"`
	WALPath        string        `yaml:"wal_path" split_words:"true"` // 只有 memory 後端使用，空字串代表不寫 WAL
	AutoMigrate    bool          `yaml:"auto_migrate" split_words:"true"`
	MaxAttempts    int           `yaml:"max_attempts" split_words:"true"`
	BackoffInitial time.Duration `yaml:"backoff_initial" split_words:"true"`
	BackoffMax     time.Duration `yaml:"backoff_max" split_words:"true"`
}

type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size" split_words:"true"`
	CacheTTL     time.Duration `yaml:"cache_ttl" split_words:"true"`
	StreamMaxLen int64         `yaml:"stream_max_len" split_words:"true"`
	EventBuffer  int           `yaml:"event_buffer" split_words:"true"`
}

// SeedConfig 啟動時建立的示範帳戶 (已存在則略過)
type SeedConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Accounts []SeedAccount `yaml:"accounts" ignored:"true"`
}

type SeedAccount struct {
	AccountNumber string `yaml:"account_number"`
	OwnerID       string `yaml:"owner_id"`
	AccountType   string `yaml:"account_type"`
	Balance       string `yaml:"balance"`
}

// Load 依序讀取 yaml、.env 與環境變數，最後補上預設值
//
// 參數:
//
//	path: yaml 路徑，檔案不存在時只使用預設值與環境變數
//	envFile: .env 路徑，不存在時略過 (已存在的環境變數不會被覆蓋)
//
// 回傳:
//
//	*Config: 設定
//	error: 解析失敗或設定不合法
func Load(path, envFile string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = BackendMemory
	}
	if c.Ledger.MaxAttempts == 0 {
		c.Ledger.MaxAttempts = 10
	}
	if c.Ledger.BackoffInitial == 0 {
		c.Ledger.BackoffInitial = time.Millisecond
	}
	if c.Ledger.BackoffMax == 0 {
		c.Ledger.BackoffMax = 50 * time.Millisecond
	}

	// 補全連線池預設配置 (如果 yaml 沒寫)
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.MaxOpenConns == 0 {
		c.MySQL.MaxOpenConns = 100
	}
	if c.MySQL.MaxIdleConns == 0 {
		c.MySQL.MaxIdleConns = 10
	}
	if c.MySQL.ConnMaxLifetime == 0 {
		c.MySQL.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.MaxOpenConns == 0 {
		c.Postgres.MaxOpenConns = 100
	}
	if c.Postgres.MaxIdleConns == 0 {
		c.Postgres.MaxIdleConns = 10
	}
	if c.Postgres.ConnMaxLifetime == 0 {
		c.Postgres.ConnMaxLifetime = 30 * time.Minute
	}

	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = 10 * time.Minute
	}
	if c.Redis.EventBuffer == 0 {
		c.Redis.EventBuffer = 1024
	}
}

// Validate 檢查設定是否合法
func (c *Config) Validate() error {
	switch c.Ledger.Backend {
	case BackendMemory, BackendMySQL, BackendPostgres:
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}
	if c.Ledger.MaxAttempts < 1 {
		return fmt.Errorf("ledger max_attempts must be positive, got %d", c.Ledger.MaxAttempts)
	}
	if c.Ledger.BackoffInitial > c.Ledger.BackoffMax {
		return fmt.Errorf("ledger backoff_initial %s exceeds backoff_max %s", c.Ledger.BackoffInitial, c.Ledger.BackoffMax)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis enabled without addr")
	}
	return nil
}
