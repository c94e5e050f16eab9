package application

import (
	"context"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// PricingService 定价门面服务。
type PricingService struct {
	Command *PricingCommandService
	Query   *PricingQueryService
}

// NewPricingService 构造函数。
func NewPricingService(cmd *PricingCommandService, query *PricingQueryService) *PricingService {
	return &PricingService{
		Command: cmd,
		Query:   query,
	}
}

// --- Command Facade ---

func (s *PricingService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*PriceResultDTO, error) {
	return s.Command.PriceOption(ctx, cmd)
}

func (s *PricingService) GenerateSurface(ctx context.Context, cmd GenerateSurfaceCommand) (*SurfaceDTO, error) {
	return s.Command.GenerateSurface(ctx, cmd)
}

// --- Query Facade ---

func (s *PricingService) PayoffProfile(ctx context.Context, q PayoffProfileQuery) (*domain.PayoffProfile, error) {
	return s.Query.PayoffProfile(ctx, q)
}

func (s *PricingService) EvaluatePayoff(ctx context.Context, q EvaluatePayoffQuery) (*PayoffCurveDTO, error) {
	return s.Query.EvaluatePayoff(ctx, q)
}

func (s *PricingService) GetOptionChain(ctx context.Context, symbol string) (*domain.OptionChain, error) {
	return s.Query.GetOptionChain(ctx, symbol)
}

func (s *PricingService) GetLatestResult(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	return s.Query.GetLatestResult(ctx, symbol)
}

func (s *PricingService) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	return s.Query.GetHistory(ctx, symbol, limit)
}
