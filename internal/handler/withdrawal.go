package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkpay-platform/internal/ledger"
	"linkpay-platform/internal/model"
	"linkpay-platform/internal/withdrawal"
)

// WithdrawalHandler 提现
type WithdrawalHandler struct {
	withdrawals *withdrawal.Ledger
}

// NewWithdrawalHandler 创建提现处理器
func NewWithdrawalHandler(withdrawals *withdrawal.Ledger) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

// WithdrawalRequest 提现申请，amount 可以是数字或字符串
type WithdrawalRequest struct {
	Amount json.Number `json:"amount" binding:"required" swaggertype:"string" example:"0.01"`
	Note   string      `json:"note" example:"paypal: me@example.com"`
}

// WithdrawalView 提现记录
type WithdrawalView struct {
	ID        string        `json:"id"`
	OwnerID   uint          `json:"ownerId"`
	Amount    ledger.Amount `json:"amount" swaggertype:"string" example:"0.01"`
	Note      string        `json:"note"`
	Status    string        `json:"status" example:"pending"`
	CreatedAt time.Time     `json:"createdAt"`
	PaidAt    *time.Time    `json:"paidAt,omitempty"`
}

func toView(w model.Withdrawal) WithdrawalView {
	return WithdrawalView{
		ID:        w.ID,
		OwnerID:   w.OwnerID,
		Amount:    ledger.Amount(w.AmountMinor),
		Note:      w.Note,
		Status:    w.Status,
		CreatedAt: w.CreatedAt,
		PaidAt:    w.PaidAt,
	}
}

func toViews(list []model.Withdrawal) []WithdrawalView {
	out := make([]WithdrawalView, 0, len(list))
	for _, w := range list {
		out = append(out, toView(w))
	}
	return out
}

// Request godoc
// @Summary 申请提现
// @Description 金额必须为正数且最多两位小数，不能超过可用余额减去待审核金额
// @Tags Withdrawal
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   body  body   WithdrawalRequest  true  "提现金额与备注"
// @Success 201 {object} WithdrawalView "成功响应"
// @Failure 400 {object} ErrorResponse "请求无效"
// @Failure 422 {object} ErrorResponse "余额不足"
// @Router /api/withdrawals [post]
func (h *WithdrawalHandler) Request(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	w, err := h.withdrawals.Request(c.Request.Context(), owner, req.Amount.String(), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toView(*w))
}

// Mine godoc
// @Summary 我的提现记录
// @Tags Withdrawal
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {array} WithdrawalView "成功响应"
// @Router /api/withdrawals/mine [get]
func (h *WithdrawalHandler) Mine(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.withdrawals.ListByOwner(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toViews(list))
}

// ListAll godoc
// @Summary 全部提现记录
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Param   status  query  string  false  "按状态过滤"  Enums(pending, paid)
// @Success 200 {array} WithdrawalView "成功响应"
// @Router /api/withdrawals [get]
func (h *WithdrawalHandler) ListAll(c *gin.Context) {
	list, err := h.withdrawals.ListAll(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toViews(list))
}

// Approve godoc
// @Summary 审核通过提现
// @Description 幂等：对已支付的提现重复调用返回当前记录
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Param   id  path  string  true  "提现 ID"
// @Success 200 {object} WithdrawalView "成功响应"
// @Failure 404 {object} ErrorResponse "提现不存在"
// @Failure 409 {object} ErrorResponse "并发冲突，可重试"
// @Router /api/withdrawals/{id}/approve [post]
func (h *WithdrawalHandler) Approve(c *gin.Context) {
	w, err := h.withdrawals.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toView(*w))
}
