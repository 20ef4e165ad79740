// Package app 按配置组装各组件，供 server 与 ledgerctl 共用
package app

import (
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"linkpay-platform/internal/config"
	"linkpay-platform/internal/events"
	"linkpay-platform/internal/fraud"
	"linkpay-platform/internal/funnel"
	"linkpay-platform/internal/ledger"
	"linkpay-platform/internal/metrics"
	"linkpay-platform/internal/model"
	"linkpay-platform/internal/registry"
	"linkpay-platform/internal/shortcode"
	"linkpay-platform/internal/withdrawal"
	"linkpay-platform/pkg/database"
	"linkpay-platform/pkg/redis"
)

// App 已组装的组件
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *goredis.Client
	Metrics     *metrics.Metrics
	Publisher   events.Publisher
	Links       *registry.Registry
	Sessions    funnel.SessionStore
	Funnel      *funnel.Funnel
	Schedule    *ledger.Schedule
	Earnings    *ledger.Ledger
	Withdrawals *withdrawal.Ledger
	Janitor     *funnel.Janitor

	logger *zap.SugaredLogger
}

// New 连接存储并组装组件。Redis 与 RabbitMQ 不可用时降级运行
func New(cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics.New(), Publisher: events.Nop{}, logger: logger}

	db, err := database.Open(database.Options{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		Charset:  cfg.Database.Charset,
		Path:     cfg.Database.Path,
	}, model.All()...)
	if err != nil {
		return nil, err
	}
	a.DB = db
	logger.Info("✅ 数据库连接成功")

	if cfg.Cache.Host != "" {
		rdb, err := redis.NewRedisClient(&redis.Options{
			Host: cfg.Cache.Host, Port: cfg.Cache.Port, Password: cfg.Cache.Password, DB: cfg.Cache.DB,
		})
		if err != nil {
			if cfg.Funnel.SessionStore == "redis" {
				a.Close()
				return nil, fmt.Errorf("会话存储需要 Redis: %w", err)
			}
			logger.Warnf("缓存连接失败: %v", err)
		} else {
			a.Redis = rdb
			logger.Info("✅ 缓存连接成功")
		}
	}

	if cfg.Events.URL != "" {
		pub, err := events.Dial(cfg.Events.URL, cfg.Events.Exchange, logger)
		if err != nil {
			logger.Warnf("事件发布不可用: %v", err)
		} else {
			a.Publisher = events.NewAsync(pub, cfg.Events.Buffer, logger)
			logger.Info("✅ 事件发布已连接")
		}
	}

	a.Schedule, err = ledger.ScheduleFromConfig(cfg.Earnings)
	if err != nil {
		a.Close()
		return nil, err
	}
	if !a.Schedule.Monotonic() {
		logger.Warnf("费率表 %s 不是单调的：跨过阈值时收益会下降", a.Schedule.Version())
	}

	a.Links = registry.New(db, a.Redis, shortcode.NewGenerator(db, logger), logger)

	if cfg.Funnel.SessionStore == "redis" {
		a.Sessions = funnel.NewRedisStore(a.Redis, logger)
	} else {
		a.Sessions = funnel.NewGormStore(db)
	}
	filter := fraud.New(a.Links, fraud.Options{IPDedup: cfg.Funnel.IPDedup, IPSalt: cfg.Funnel.IPSalt}, logger)
	a.Funnel = funnel.New(a.Links, a.Sessions, filter, funnel.Policy{
		MinDwell: time.Duration(cfg.Funnel.MinDwellSeconds) * time.Second,
		TTL:      time.Duration(cfg.Funnel.SessionTTLSeconds) * time.Second,
	}, logger, funnel.WithMetrics(a.Metrics), funnel.WithPublisher(a.Publisher))
	a.Janitor = funnel.NewJanitor(a.Sessions, time.Duration(cfg.Funnel.PurgeIntervalSeconds)*time.Second, a.Metrics, logger)

	store := withdrawal.NewStore(db)
	a.Earnings = ledger.New(a.Schedule, a.Links, store)
	a.Withdrawals = withdrawal.NewLedger(store, a.Earnings,
		ledger.FromDecimal(cfg.Earnings.MinWithdrawAmount()), a.Metrics, logger)

	return a, nil
}

// Close 释放连接
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, database.Close(a.DB))
	}
	return errors.Join(errs...)
}
