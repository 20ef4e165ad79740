package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers 全部处理器
type Handlers struct {
	Links       *ShortLinkHandler
	Funnel      *FunnelHandler
	Withdrawals *WithdrawalHandler
	Wallet      *WalletHandler
	Admin       *AdminHandler
	Auth        *AuthHandler
}

// RegisterRoutes 注册路由。funnelGuards 作用于漏斗入口，例如机器人拦截
func RegisterRoutes(router *gin.Engine, h Handlers, authMiddleware, adminMiddleware gin.HandlerFunc, funnelGuards ...gin.HandlerFunc) {
	router.GET("/health", h.Links.HealthCheck)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/register", h.Auth.Register)
	}

	// 短链接入口即漏斗开始
	router.GET("/:code", append(funnelGuards, h.Funnel.Begin)...)
	funnelGroup := router.Group("/funnel", funnelGuards...)
	{
		funnelGroup.GET("/begin/:code", h.Funnel.Begin)
		funnelGroup.POST("/complete", h.Funnel.Complete)
	}

	api := router.Group("/api")
	api.Use(authMiddleware)
	{
		api.GET("/me", h.Auth.GetCurrentUser)
		api.POST("/links", h.Links.CreateShortLink)
		api.GET("/links", h.Links.ListLinks)
		api.DELETE("/links/:code", h.Links.DeleteLink)
		api.POST("/withdrawals", h.Withdrawals.Request)
		api.GET("/withdrawals/mine", h.Withdrawals.Mine)
		api.GET("/wallet", h.Wallet.Wallet)
		api.GET("/settings", h.Wallet.Settings)
	}

	admin := api.Group("")
	admin.Use(adminMiddleware)
	{
		admin.GET("/withdrawals", h.Withdrawals.ListAll)
		admin.POST("/withdrawals/:id/approve", h.Withdrawals.Approve)
		admin.GET("/admin/links", h.Links.AdminListLinks)
		admin.DELETE("/admin/links/:code", h.Links.AdminDeleteLink)
		admin.GET("/admin/stats", h.Admin.Stats)
		admin.GET("/admin/owners", h.Admin.Owners)
	}
}
