package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"linkpay-platform/internal/ledger"
	"linkpay-platform/internal/model"
	"linkpay-platform/internal/registry"
	"linkpay-platform/internal/withdrawal"
)

// WalletHandler 收益与余额
type WalletHandler struct {
	earnings        *ledger.Ledger
	withdrawals     *withdrawal.Ledger
	minDwellSeconds int
}

// NewWalletHandler 创建钱包处理器
func NewWalletHandler(earnings *ledger.Ledger, withdrawals *withdrawal.Ledger, minDwellSeconds int) *WalletHandler {
	return &WalletHandler{earnings: earnings, withdrawals: withdrawals, minDwellSeconds: minDwellSeconds}
}

// Wallet godoc
// @Summary 我的钱包
// @Description 收益由当前点击数实时计算，余额 = max(收益 - 已支付, 0)
// @Tags Wallet
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} ledger.Summary "成功响应"
// @Router /api/wallet [get]
func (h *WalletHandler) Wallet(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	summary, err := h.earnings.Summary(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SettingsResponse 公开的结算参数
type SettingsResponse struct {
	Currency        string        `json:"currency" example:"USD"`
	ScheduleVersion string        `json:"scheduleVersion" example:"2024-01"`
	Tiers           []ledger.Tier `json:"tiers"`
	MinWithdraw     ledger.Amount `json:"minWithdraw" swaggertype:"string" example:"5.00"`
	MinDwellSeconds int           `json:"minDwellSeconds" example:"25"`
}

// Settings godoc
// @Summary 结算参数
// @Tags Wallet
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} SettingsResponse "成功响应"
// @Router /api/settings [get]
func (h *WalletHandler) Settings(c *gin.Context) {
	s := h.earnings.Schedule()
	c.JSON(http.StatusOK, SettingsResponse{
		Currency:        s.Currency(),
		ScheduleVersion: s.Version(),
		Tiers:           s.Tiers(),
		MinWithdraw:     h.withdrawals.Minimum(),
		MinDwellSeconds: h.minDwellSeconds,
	})
}

// AdminHandler 管理后台汇总
type AdminHandler struct {
	db          *gorm.DB
	links       *registry.Registry
	earnings    *ledger.Ledger
	withdrawals *withdrawal.Ledger
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(db *gorm.DB, links *registry.Registry, earnings *ledger.Ledger, withdrawals *withdrawal.Ledger) *AdminHandler {
	return &AdminHandler{db: db, links: links, earnings: earnings, withdrawals: withdrawals}
}

// StatsResponse 全站统计
type StatsResponse struct {
	TotalUsers         int64         `json:"totalUsers"`
	TotalLinks         int64         `json:"totalLinks"`
	TotalClicks        int64         `json:"totalClicks"`
	GrossEarnings      ledger.Amount `json:"grossEarnings" swaggertype:"string"`
	PendingWithdrawals int64         `json:"pendingWithdrawals"`
	PaidTotal          ledger.Amount `json:"paidTotal" swaggertype:"string"`
}

// Stats godoc
// @Summary 全站统计
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} StatsResponse "成功响应"
// @Router /api/admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	var resp StatsResponse

	if err := h.db.WithContext(ctx).Model(&model.User{}).Count(&resp.TotalUsers).Error; err != nil {
		respondError(c, err)
		return
	}
	linkStats, err := h.links.Stats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	resp.TotalLinks, resp.TotalClicks = linkStats.TotalLinks, linkStats.TotalClicks

	owners, err := h.earnings.Owners(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	for _, o := range owners {
		resp.GrossEarnings += o.Gross
	}

	resp.PendingWithdrawals, resp.PaidTotal, err = h.withdrawals.Totals(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Owners godoc
// @Summary 用户收益列表
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {array} ledger.Summary "成功响应"
// @Router /api/admin/owners [get]
func (h *AdminHandler) Owners(c *gin.Context) {
	owners, err := h.earnings.Owners(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, owners)
}
