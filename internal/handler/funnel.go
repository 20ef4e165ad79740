package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkpay-platform/internal/funnel"
)

// FunnelHandler 点击验证漏斗
type FunnelHandler struct {
	funnel       *funnel.Funnel
	cookieName   string
	secureCookie bool
}

// NewFunnelHandler 创建漏斗处理器
func NewFunnelHandler(f *funnel.Funnel, cookieName string, secureCookie bool) *FunnelHandler {
	return &FunnelHandler{funnel: f, cookieName: cookieName, secureCookie: secureCookie}
}

// BeginResponse 漏斗开始响应
type BeginResponse struct {
	Token           string    `json:"token" example:"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"`
	Code            string    `json:"code" example:"aZ3kP9q"`
	MinDwellSeconds int       `json:"minDwellSeconds" example:"25"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// CompleteRequest 漏斗完成请求，token 缺省时读取 cookie
type CompleteRequest struct {
	Token       string `json:"token"`
	Fingerprint string `json:"fingerprint" example:"c0ffee"`
}

// Begin godoc
// @Summary 开始点击验证
// @Description 校验短码并发放一次性会话，停留时间从此刻开始计算；会话同时写入 HttpOnly cookie
// @Tags Funnel
// @Produce  json
// @Param   code  path  string  true  "短码"
// @Success 200 {object} BeginResponse "成功响应"
// @Failure 403 {object} ErrorResponse "疑似机器人"
// @Failure 404 {object} ErrorResponse "链接不存在"
// @Router /funnel/begin/{code} [get]
func (h *FunnelHandler) Begin(c *gin.Context) {
	sess, err := h.funnel.Begin(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	policy := h.funnel.Policy()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, sess.Token, int(policy.TTL.Seconds()), "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, BeginResponse{
		Token:           sess.Token,
		Code:            sess.Code,
		MinDwellSeconds: int(policy.MinDwell.Seconds()),
		ExpiresAt:       sess.ExpiresAt,
	})
}

// Complete godoc
// @Summary 完成点击验证
// @Description 消费会话并尝试计数。被拒绝的点击同样返回 200，accepted=false 并给出原因
// @Tags Funnel
// @Accept  json
// @Produce  json
// @Param   body  body   CompleteRequest  true  "会话与设备指纹"
// @Success 200 {object} funnel.ClickResult "处理结果"
// @Failure 400 {object} ErrorResponse "缺少会话"
// @Failure 500 {object} ErrorResponse "存储故障，点击未计数"
// @Router /funnel/complete [post]
func (h *FunnelHandler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}
	if req.Token == "" {
		if cookie, err := c.Cookie(h.cookieName); err == nil {
			req.Token = cookie
		}
	}
	if req.Token == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "缺少会话 token", Code: CodeValidation})
		return
	}

	res, err := h.funnel.Complete(c.Request.Context(), req.Token, req.Fingerprint, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}

	// 会话已被消费，清除 cookie
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, res)
}
