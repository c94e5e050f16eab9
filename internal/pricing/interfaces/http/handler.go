package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/response"
)

// PricingHandler HTTP 处理器
// 负责处理与定价相关的 HTTP 请求
type PricingHandler struct {
	svc *application.PricingService
}

// NewPricingHandler 创建 HTTP 处理器实例
func NewPricingHandler(svc *application.PricingService) *PricingHandler {
	return &PricingHandler{svc: svc}
}

// RegisterRoutes 注册路由
// 将处理器方法绑定到 Gin 路由引擎
func (h *PricingHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/pricing")
	{
		api.POST("/option/price", h.PriceOption)
		api.POST("/surface", h.GenerateSurface)
		api.POST("/payoff", h.PayoffProfile)
		api.POST("/payoff/:strategy", h.EvaluatePayoff)
		api.GET("/chain/:symbol", h.GetOptionChain)
		api.GET("/results/:symbol/latest", h.GetLatestResult)
		api.GET("/results/:symbol/history", h.GetHistory)
	}
}

// PriceOptionRequest 定价请求
// Symbol 为空时只计算不落库；OptionType 为空时返回看涨与看跌两个价格
type PriceOptionRequest struct {
	Symbol          string  `json:"symbol"`
	OptionType      string  `json:"option_type"`
	UnderlyingPrice float64 `json:"underlying_price"`
	StrikePrice     float64 `json:"strike_price"`
	TimeToExpiry    float64 `json:"time_to_expiry"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
	Volatility      float64 `json:"volatility"`
}

// SurfaceRequest 敏感度曲面请求
type SurfaceRequest struct {
	Symbol       string  `json:"symbol"`
	MinSpot      float64 `json:"min_spot"`
	MaxSpot      float64 `json:"max_spot"`
	MinVol       float64 `json:"min_vol"`
	MaxVol       float64 `json:"max_vol"`
	StrikePrice  float64 `json:"strike_price"`
	TimeToExpiry float64 `json:"time_to_expiry"`
	RiskFreeRate float64 `json:"risk_free_rate"`
	Samples      int     `json:"samples"`
}

// PayoffProfileRequest 四种头寸收益曲线请求
type PayoffProfileRequest struct {
	UnderlyingPrice float64 `json:"underlying_price"`
	StrikePrice     float64 `json:"strike_price"`
	TimeToExpiry    float64 `json:"time_to_expiry"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
	Volatility      float64 `json:"volatility"`
	Points          int     `json:"points"`
}

// EvaluatePayoffRequest 单一头寸损益请求
type EvaluatePayoffRequest struct {
	StrikePrice float64   `json:"strike_price"`
	Premium     float64   `json:"premium"`
	Spots       []float64 `json:"spots"`
}

// PriceOption 期权定价
func (h *PricingHandler) PriceOption(c *gin.Context) {
	var req PriceOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.svc.PriceOption(c.Request.Context(), application.PriceOptionCommand{
		Symbol:          req.Symbol,
		OptionType:      req.OptionType,
		UnderlyingPrice: req.UnderlyingPrice,
		StrikePrice:     req.StrikePrice,
		TimeToExpiry:    req.TimeToExpiry,
		RiskFreeRate:    req.RiskFreeRate,
		Volatility:      req.Volatility,
	})
	if err != nil {
		writeError(c, "Failed to calculate option price", err)
		return
	}
	response.Success(c, result)
}

// GenerateSurface 生成敏感度曲面
func (h *PricingHandler) GenerateSurface(c *gin.Context) {
	var req SurfaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	surface, err := h.svc.GenerateSurface(c.Request.Context(), application.GenerateSurfaceCommand{
		Symbol:       req.Symbol,
		MinSpot:      req.MinSpot,
		MaxSpot:      req.MaxSpot,
		MinVol:       req.MinVol,
		MaxVol:       req.MaxVol,
		StrikePrice:  req.StrikePrice,
		TimeToExpiry: req.TimeToExpiry,
		RiskFreeRate: req.RiskFreeRate,
		Samples:      req.Samples,
	})
	if err != nil {
		writeError(c, "Failed to generate surface", err)
		return
	}
	response.Success(c, surface)
}

// PayoffProfile 四种头寸在 [0.5S, 1.5S] 上的收益曲线
func (h *PricingHandler) PayoffProfile(c *gin.Context) {
	var req PayoffProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	profile, err := h.svc.PayoffProfile(c.Request.Context(), application.PayoffProfileQuery{
		UnderlyingPrice: req.UnderlyingPrice,
		StrikePrice:     req.StrikePrice,
		TimeToExpiry:    req.TimeToExpiry,
		RiskFreeRate:    req.RiskFreeRate,
		Volatility:      req.Volatility,
		Points:          req.Points,
	})
	if err != nil {
		writeError(c, "Failed to build payoff profile", err)
		return
	}
	response.Success(c, profile)
}

// EvaluatePayoff 单一头寸损益，策略取自路径参数
func (h *PricingHandler) EvaluatePayoff(c *gin.Context) {
	var req EvaluatePayoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	curve, err := h.svc.EvaluatePayoff(c.Request.Context(), application.EvaluatePayoffQuery{
		Strategy:    c.Param("strategy"),
		StrikePrice: req.StrikePrice,
		Premium:     req.Premium,
		Spots:       req.Spots,
	})
	if err != nil {
		writeError(c, "Failed to evaluate payoff", err)
		return
	}
	response.Success(c, curve)
}

// GetOptionChain 获取标的期权链
func (h *PricingHandler) GetOptionChain(c *gin.Context) {
	chain, err := h.svc.GetOptionChain(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, "Failed to fetch option chain", err)
		return
	}
	response.Success(c, chain)
}

// GetLatestResult 获取标的最新定价结果
func (h *PricingHandler) GetLatestResult(c *gin.Context) {
	result, err := h.svc.GetLatestResult(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, "Failed to get latest pricing result", err)
		return
	}
	response.Success(c, result)
}

// GetHistory 获取标的历史定价结果
func (h *PricingHandler) GetHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid limit", err.Error())
			return
		}
		limit = n
	}

	results, err := h.svc.GetHistory(c.Request.Context(), c.Param("symbol"), limit)
	if err != nil {
		writeError(c, "Failed to get pricing history", err)
		return
	}
	response.Success(c, gin.H{"symbol": c.Param("symbol"), "results": results})
}

// writeError 参数错误返回 400，无数据返回 404，其余返回 500
func writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, domain.ErrNoData):
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
	default:
		logger.Error(c.Request.Context(), msg, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, msg, err.Error())
	}
}
