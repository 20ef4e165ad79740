package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// 主配置结构
type Config struct {
	App       App      `yaml:"app"`
	Server    Server   `yaml:"server"`
	Database  DB       `yaml:"database"`
	Cache     Cache    `yaml:"cache"`
	Auth      Auth     `yaml:"auth"`
	RateLimit Limit    `yaml:"rate_limit"`
	Log       Log      `yaml:"log"`
	Funnel    Funnel   `yaml:"funnel"`
	Earnings  Earnings `yaml:"earnings"`
	Events    Events   `yaml:"events"`
	Tracing   Tracing  `yaml:"tracing"`
}

const (
	ModeProduction = "production"

	// configs/config.yaml 中的占位值
	DefaultSecret        = "change-me"
	DefaultAdminPassword = "admin"

	minProductionSecret = 32
)

// 应用配置
type App struct {
	Name    string `yaml:"name"`
	Mode    string `yaml:"mode"`
	Version string `yaml:"version"`
	BaseURL string `yaml:"base_url"`
}

// 服务器配置
type Server struct {
	Port            int `yaml:"port"`
	ReadTimeout     int `yaml:"read_timeout"`
	WriteTimeout    int `yaml:"write_timeout"`
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// 数据库配置，Driver 取值 mysql / postgres / sqlite
type DB struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
	// Path 仅用于 sqlite
	Path string `yaml:"path"`
}

// 缓存配置（Redis），Host 为空表示不启用
type Cache struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// 认证配置
type Auth struct {
	Secret          string `yaml:"secret"`
	Issuer          string `yaml:"issuer"`
	ExpirationHours int    `yaml:"expiration_hours"`
	AdminUsername   string `yaml:"admin_username"`
	AdminPassword   string `yaml:"admin_password"`
}

// 限流配置
type Limit struct {
	Enabled   bool     `yaml:"enabled"`
	Requests  int64    `yaml:"requests_per_minute"`
	Burst     int64    `yaml:"burst"`
	SkipPaths []string `yaml:"skip_paths"`
}

// 日志配置
type Log struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// 验证漏斗配置
type Funnel struct {
	MinDwellSeconds      int    `yaml:"min_dwell_seconds"`
	SessionTTLSeconds    int    `yaml:"session_ttl_seconds"`
	PurgeIntervalSeconds int    `yaml:"purge_interval_seconds"`
	IPDedup              bool   `yaml:"ip_dedup"`
	IPSalt               string `yaml:"ip_salt"`
	CookieName           string `yaml:"cookie_name"`
	BotGuard             bool   `yaml:"bot_guard"`
	// SessionStore 取值 db / redis，redis 需要 cache 已配置
	SessionStore string `yaml:"session_store"`
}

// 收益配置。金额与费率用字符串表示，避免浮点误差
type Earnings struct {
	Currency        string `yaml:"currency"`
	ScheduleVersion string `yaml:"schedule_version"`
	MinWithdraw     string `yaml:"min_withdraw"`
	Tiers           []Tier `yaml:"tiers"`
}

// Tier 阶梯费率：浏览量达到 Threshold 后，每千次点击的收益为 Rate
type Tier struct {
	Threshold int64  `yaml:"threshold"`
	Rate      string `yaml:"rate"`
}

// 事件配置（RabbitMQ），URL 为空表示不发布
type Events struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
	// Buffer 异步发布队列长度
	Buffer int `yaml:"buffer"`
}

// 链路追踪配置
type Tracing struct {
	Enabled bool `yaml:"enabled"`
}

// 加载配置：先读 YAML，再用 .env 与环境变量覆盖敏感项
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	_ = godotenv.Load() // 生产环境通常没有 .env
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.App.BaseURL = getEnv("BASE_URL", c.App.BaseURL)
	c.Database.Driver = getEnv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DATABASE_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DATABASE_PORT", c.Database.Port)
	c.Database.User = getEnv("DATABASE_USER", c.Database.User)
	c.Database.Password = getEnv("DATABASE_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DATABASE_NAME", c.Database.Name)
	c.Database.Path = getEnv("DATABASE_PATH", c.Database.Path)
	c.Cache.Host = getEnv("REDIS_HOST", c.Cache.Host)
	c.Cache.Port = getEnvInt("REDIS_PORT", c.Cache.Port)
	c.Cache.Password = getEnv("REDIS_PASSWORD", c.Cache.Password)
	c.Auth.Secret = getEnv("AUTH_SECRET", c.Auth.Secret)
	c.Auth.AdminPassword = getEnv("ADMIN_PASSWORD", c.Auth.AdminPassword)
	c.Funnel.IPSalt = getEnv("FUNNEL_IP_SALT", c.Funnel.IPSalt)
	c.Events.URL = getEnv("AMQP_URL", c.Events.URL)
}

// Validate 填充默认值并拒绝无法运行的组合
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Auth.ExpirationHours == 0 {
		c.Auth.ExpirationHours = 24
	}
	if c.Funnel.MinDwellSeconds == 0 {
		c.Funnel.MinDwellSeconds = 25
	}
	if c.Funnel.SessionTTLSeconds == 0 {
		c.Funnel.SessionTTLSeconds = 600
	}
	if c.Funnel.PurgeIntervalSeconds == 0 {
		c.Funnel.PurgeIntervalSeconds = 60
	}
	if c.Funnel.CookieName == "" {
		c.Funnel.CookieName = "click_session"
	}
	if c.Funnel.SessionStore == "" {
		c.Funnel.SessionStore = "db"
	}
	if c.Earnings.Currency == "" {
		c.Earnings.Currency = "USD"
	}
	if c.Earnings.MinWithdraw == "" {
		c.Earnings.MinWithdraw = "0"
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "linkpay.clicks"
	}
	if c.Events.Buffer == 0 {
		c.Events.Buffer = 1024
	}

	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}
	if c.Auth.Secret == "" {
		return errors.New("auth.secret 不能为空")
	}
	if c.App.Mode == ModeProduction {
		if c.Auth.Secret == DefaultSecret || len(c.Auth.Secret) < minProductionSecret {
			return errors.New("生产环境必须设置 auth.secret（至少 32 个字符，不能使用默认值）")
		}
		if c.Auth.AdminUsername != "" && c.Auth.AdminPassword == DefaultAdminPassword {
			return errors.New("生产环境不能使用默认管理员密码")
		}
	}
	if c.Funnel.MinDwellSeconds < 0 {
		return errors.New("funnel.min_dwell_seconds 不能为负数")
	}
	if c.Funnel.SessionTTLSeconds <= c.Funnel.MinDwellSeconds {
		return errors.New("funnel.session_ttl_seconds 必须大于 min_dwell_seconds")
	}
	switch c.Funnel.SessionStore {
	case "db":
	case "redis":
		if c.Cache.Host == "" {
			return errors.New("funnel.session_store=redis 需要配置 cache.host")
		}
	default:
		return fmt.Errorf("不支持的会话存储: %s", c.Funnel.SessionStore)
	}
	if len(c.Earnings.Tiers) == 0 {
		return errors.New("earnings.tiers 不能为空")
	}
	for _, t := range c.Earnings.Tiers {
		if _, err := decimal.NewFromString(t.Rate); err != nil {
			return fmt.Errorf("earnings.tiers 费率格式错误 %q: %w", t.Rate, err)
		}
	}
	min, err := decimal.NewFromString(c.Earnings.MinWithdraw)
	if err != nil {
		return fmt.Errorf("earnings.min_withdraw 格式错误: %w", err)
	}
	if min.IsNegative() {
		return errors.New("earnings.min_withdraw 不能为负数")
	}
	if !min.Round(2).Shift(2).BigInt().IsInt64() {
		return errors.New("earnings.min_withdraw 超出范围")
	}
	return nil
}

// MinWithdrawAmount 返回已校验过的最小提现金额
func (e Earnings) MinWithdrawAmount() decimal.Decimal {
	d, _ := decimal.NewFromString(e.MinWithdraw)
	return d
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
