package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "linkpay-platform/docs"
	"linkpay-platform/internal/app"
	"linkpay-platform/internal/config"
	"linkpay-platform/internal/handler"
	"linkpay-platform/internal/middleware"
	auth "linkpay-platform/pkg/jwt"
	"linkpay-platform/pkg/logger"
	"linkpay-platform/pkg/tracing"
)

// @title LinkPay 短链接收益平台 API
// @version 1.0
// @description 点击验证漏斗、收益账本与提现审核接口
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Bearer JWT

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "配置加载失败:", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Options{
		File:       cfg.Log.File,
		Level:      cfg.Log.Level,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	})
	defer func() {
		if err := logger.Logger.Sync(); err != nil {
			fmt.Println("日志同步失败:", err)
		}
	}()
	sugaredLogger := zap.S()

	if err := run(cfg, sugaredLogger); err != nil {
		sugaredLogger.Errorf("服务异常退出: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, sugaredLogger *zap.SugaredLogger) error {
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(cfg.App.Name, cfg.App.Version, os.Stdout)
		if err != nil {
			return fmt.Errorf("链路追踪初始化失败: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				sugaredLogger.Warnf("链路追踪关闭失败: %v", err)
			}
		}()
	}

	a, err := app.New(cfg, sugaredLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			sugaredLogger.Errorf("关闭连接失败: %v", err)
		}
	}()

	tokenManager := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.ExpirationHours)
	sugaredLogger.Info("✅ 认证管理器初始化成功")

	if cfg.Auth.AdminUsername != "" && cfg.Auth.AdminPassword != "" {
		created, err := handler.EnsureAdmin(a.DB, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
		if err != nil {
			sugaredLogger.Errorf("创建管理员失败: %v", err)
		} else if created {
			sugaredLogger.Infow("✅ 默认管理员创建成功", "username", cfg.Auth.AdminUsername)
		}
	}

	if cfg.App.Mode == config.ModeProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapRecovery(logger.Logger))
	if cfg.Tracing.Enabled {
		router.Use(tracing.Middleware(cfg.App.Name))
	}
	router.Use(middleware.GinZapLogger(logger.Logger))
	router.Use(a.Metrics.Middleware())
	router.Use(middleware.RateLimit(a.Redis, &cfg.RateLimit, sugaredLogger))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(a.Metrics.Handler()))

	var funnelGuards []gin.HandlerFunc
	if cfg.Funnel.BotGuard {
		funnelGuards = append(funnelGuards, middleware.BotGuard())
	}
	handler.RegisterRoutes(router, handler.Handlers{
		Links:       handler.NewShortLinkHandler(a.Links, cfg.App.BaseURL),
		Funnel:      handler.NewFunnelHandler(a.Funnel, cfg.Funnel.CookieName, cfg.App.Mode == config.ModeProduction),
		Withdrawals: handler.NewWithdrawalHandler(a.Withdrawals),
		Wallet:      handler.NewWalletHandler(a.Earnings, a.Withdrawals, cfg.Funnel.MinDwellSeconds),
		Admin:       handler.NewAdminHandler(a.DB, a.Links, a.Earnings, a.Withdrawals),
		Auth:        handler.NewAuthHandler(a.DB, tokenManager),
	}, middleware.AuthMiddleware(tokenManager), middleware.AdminMiddleware(), funnelGuards...)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	a.Janitor.Start()
	defer a.Janitor.Stop()
	sugaredLogger.Info("✅ 会话清理任务已启动")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sugaredLogger.Infof("🚀 服务启动成功, 访问 http://localhost:%d", cfg.Server.Port)
		sugaredLogger.Infof("📚 Swagger 文档地址: http://localhost:%d/swagger/index.html", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("服务启动失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sugaredLogger.Info("正在关闭服务...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
