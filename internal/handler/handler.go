package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"linkpay-platform/internal/model"
	"linkpay-platform/internal/registry"
)

// ShortLinkHandler 短链接管理
type ShortLinkHandler struct {
	links   *registry.Registry
	baseURL string
}

// NewShortLinkHandler 创建处理器实例，baseURL 为空时使用请求的 Host
func NewShortLinkHandler(links *registry.Registry, baseURL string) *ShortLinkHandler {
	return &ShortLinkHandler{links: links, baseURL: strings.TrimRight(baseURL, "/")}
}

// HealthCheck 健康检查
func (h *ShortLinkHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
}

// CreateShortLinkRequest 创建短链接请求
type CreateShortLinkRequest struct {
	DestinationURL string `json:"destinationUrl" binding:"required" example:"https://github.com/gin-gonic/gin"`
}

// CreateShortLinkResponse 创建短链接响应
type CreateShortLinkResponse struct {
	Code     string `json:"code" example:"aZ3kP9q"`
	ShortURL string `json:"shortUrl" example:"http://localhost:8080/aZ3kP9q"`
}

// LinkView 短链接列表项
type LinkView struct {
	Code           string    `json:"code"`
	ShortURL       string    `json:"shortUrl"`
	DestinationURL string    `json:"destinationUrl"`
	OwnerID        uint      `json:"ownerId"`
	Clicks         int64     `json:"clicks"`
	CreatedAt      time.Time `json:"createdAt"`
}

// CreateShortLink godoc
// @Summary 创建短链接
// @Description 为当前用户创建一个新的短链接
// @Tags ShortLink
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   link  body   CreateShortLinkRequest  true  "目标地址"
// @Success 201 {object} CreateShortLinkResponse "成功响应"
// @Failure 400 {object} ErrorResponse "请求无效"
// @Failure 503 {object} ErrorResponse "短码生成失败"
// @Router /api/links [post]
func (h *ShortLinkHandler) CreateShortLink(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateShortLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	link, err := h.links.Create(c.Request.Context(), req.DestinationURL, owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreateShortLinkResponse{Code: link.ShortCode, ShortURL: h.shortURL(c, link.ShortCode)})
}

// ListLinks godoc
// @Summary 我的短链接
// @Tags ShortLink
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {array} LinkView "成功响应"
// @Router /api/links [get]
func (h *ShortLinkHandler) ListLinks(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	links, err := h.links.ListByOwner(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.views(c, links))
}

// DeleteLink godoc
// @Summary 删除我的短链接
// @Tags ShortLink
// @Security ApiKeyAuth
// @Produce  json
// @Param   code  path  string  true  "短码"
// @Success 200 {object} map[string]string "删除成功"
// @Failure 404 {object} ErrorResponse "链接不存在"
// @Router /api/links/{code} [delete]
func (h *ShortLinkHandler) DeleteLink(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.links.Delete(c.Request.Context(), c.Param("code"), owner); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}

// AdminListLinks godoc
// @Summary 全部短链接
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {array} LinkView "成功响应"
// @Router /api/admin/links [get]
func (h *ShortLinkHandler) AdminListLinks(c *gin.Context) {
	links, err := h.links.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.views(c, links))
}

// AdminDeleteLink godoc
// @Summary 删除任意短链接
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Param   code  path  string  true  "短码"
// @Success 200 {object} map[string]string "删除成功"
// @Failure 404 {object} ErrorResponse "链接不存在"
// @Router /api/admin/links/{code} [delete]
func (h *ShortLinkHandler) AdminDeleteLink(c *gin.Context) {
	if err := h.links.AdminDelete(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}

func (h *ShortLinkHandler) views(c *gin.Context, links []model.ShortLink) []LinkView {
	out := make([]LinkView, 0, len(links))
	for _, l := range links {
		out = append(out, LinkView{
			Code:           l.ShortCode,
			ShortURL:       h.shortURL(c, l.ShortCode),
			DestinationURL: l.DestinationURL,
			OwnerID:        l.OwnerID,
			Clicks:         l.ClickCount,
			CreatedAt:      l.CreatedAt,
		})
	}
	return out
}

func (h *ShortLinkHandler) shortURL(c *gin.Context, code string) string {
	base := h.baseURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + c.Request.Host
	}
	return base + "/" + code
}
