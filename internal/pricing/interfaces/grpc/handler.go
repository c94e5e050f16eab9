// Package grpc gRPC 处理器实现
package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCHandler gRPC 处理器
// 负责处理与定价相关的 gRPC 请求
type GRPCHandler struct {
	app *application.PricingService // 定价应用服务
}

// NewGRPCHandler 创建 gRPC 处理器实例
func NewGRPCHandler(app *application.PricingService) *GRPCHandler {
	return &GRPCHandler{app: app}
}

type priceOptionRequest struct {
	Symbol          string  `json:"symbol"`
	OptionType      string  `json:"option_type"`
	UnderlyingPrice float64 `json:"underlying_price"`
	StrikePrice     float64 `json:"strike_price"`
	TimeToExpiry    float64 `json:"time_to_expiry"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
	Volatility      float64 `json:"volatility"`
}

type surfaceRequest struct {
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

type payoffProfileRequest struct {
	UnderlyingPrice float64 `json:"underlying_price"`
	StrikePrice     float64 `json:"strike_price"`
	TimeToExpiry    float64 `json:"time_to_expiry"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
	Volatility      float64 `json:"volatility"`
	Points          int     `json:"points"`
}

type evaluatePayoffRequest struct {
	Strategy    string    `json:"strategy"`
	StrikePrice float64   `json:"strike_price"`
	Premium     float64   `json:"premium"`
	Spots       []float64 `json:"spots"`
}

type symbolRequest struct {
	Symbol string `json:"symbol"`
	Limit  int    `json:"limit"`
}

// PriceOption 期权定价
func (h *GRPCHandler) PriceOption(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req priceOptionRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	dto, err := h.app.PriceOption(ctx, application.PriceOptionCommand{
		Symbol:          req.Symbol,
		OptionType:      req.OptionType,
		UnderlyingPrice: req.UnderlyingPrice,
		StrikePrice:     req.StrikePrice,
		TimeToExpiry:    req.TimeToExpiry,
		RiskFreeRate:    req.RiskFreeRate,
		Volatility:      req.Volatility,
	})
	return encode(ctx, dto, err)
}

// GenerateSurface 生成敏感度曲面
func (h *GRPCHandler) GenerateSurface(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req surfaceRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	dto, err := h.app.GenerateSurface(ctx, application.GenerateSurfaceCommand{
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
	return encode(ctx, dto, err)
}

// PayoffProfile 四种头寸收益曲线
func (h *GRPCHandler) PayoffProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req payoffProfileRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	profile, err := h.app.PayoffProfile(ctx, application.PayoffProfileQuery{
		UnderlyingPrice: req.UnderlyingPrice,
		StrikePrice:     req.StrikePrice,
		TimeToExpiry:    req.TimeToExpiry,
		RiskFreeRate:    req.RiskFreeRate,
		Volatility:      req.Volatility,
		Points:          req.Points,
	})
	return encode(ctx, profile, err)
}

// EvaluatePayoff 单一头寸损益
func (h *GRPCHandler) EvaluatePayoff(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req evaluatePayoffRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	curve, err := h.app.EvaluatePayoff(ctx, application.EvaluatePayoffQuery{
		Strategy:    req.Strategy,
		StrikePrice: req.StrikePrice,
		Premium:     req.Premium,
		Spots:       req.Spots,
	})
	return encode(ctx, curve, err)
}

// FetchOptionChain 获取期权链
func (h *GRPCHandler) FetchOptionChain(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req symbolRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	chain, err := h.app.GetOptionChain(ctx, req.Symbol)
	return encode(ctx, chain, err)
}

// GetLatestResult 最新定价结果
func (h *GRPCHandler) GetLatestResult(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req symbolRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	result, err := h.app.GetLatestResult(ctx, req.Symbol)
	return encode(ctx, result, err)
}

// GetHistory 历史定价结果
func (h *GRPCHandler) GetHistory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req symbolRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	results, err := h.app.GetHistory(ctx, req.Symbol, req.Limit)
	if err != nil {
		return encode(ctx, nil, err)
	}
	return encode(ctx, map[string]any{"symbol": req.Symbol, "results": results}, nil)
}

func decode(in *structpb.Struct, dst any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func encode(ctx context.Context, v any, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// toStatus 参数错误映射为 InvalidArgument，无数据映射为 NotFound
func toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNoData):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		logger.Error(ctx, "pricing request failed", "error", err)
		return status.Error(codes.Internal, err.Error())
	}
}
