package domain

import (
	"math"
	"strings"
)

// PayoffStrategy 单腿期权头寸
type PayoffStrategy string

const (
	StrategyLongCall  PayoffStrategy = "LONG_CALL"
	StrategyLongPut   PayoffStrategy = "LONG_PUT"
	StrategyShortCall PayoffStrategy = "SHORT_CALL"
	StrategyShortPut  PayoffStrategy = "SHORT_PUT"
)

// PayoffStrategies 固定顺序，供展示层按序绘制
var PayoffStrategies = []PayoffStrategy{StrategyLongCall, StrategyLongPut, StrategyShortCall, StrategyShortPut}

// DefaultPayoffPoints 收益曲线默认采样点数
const DefaultPayoffPoints = 100

// ParsePayoffStrategy 解析头寸类型，接受 long_call / LONG-CALL 等写法
func ParsePayoffStrategy(s string) (PayoffStrategy, error) {
	norm := PayoffStrategy(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	for _, st := range PayoffStrategies {
		if st == norm {
			return st, nil
		}
	}
	return "", &InputError{Param: "strategy", Value: s, Reason: "unknown payoff strategy"}
}

// LongCall 买入看涨：max(S-K, 0) - premium
func LongCall(s, k, premium float64) (float64, error) {
	return Payoff(StrategyLongCall, s, k, premium)
}

// LongPut 买入看跌：max(K-S, 0) - premium
func LongPut(s, k, premium float64) (float64, error) {
	return Payoff(StrategyLongPut, s, k, premium)
}

// ShortCall 卖出看涨：premium - max(S-K, 0)
func ShortCall(s, k, premium float64) (float64, error) {
	return Payoff(StrategyShortCall, s, k, premium)
}

// ShortPut 卖出看跌：premium - max(K-S, 0)
func ShortPut(s, k, premium float64) (float64, error) {
	return Payoff(StrategyShortPut, s, k, premium)
}

// Payoff 计算到期时单个标的价格下的净损益（已扣除/计入权利金）
func Payoff(strategy PayoffStrategy, s, k, premium float64) (float64, error) {
	if err := checkPayoffParams(k, premium); err != nil {
		return 0, err
	}
	if err := requireFinite("S", s); err != nil {
		return 0, err
	}
	return payoff(strategy, s, k, premium)
}

// Payoffs 逐元素计算，返回与 spots 等长同序的结果
func Payoffs(strategy PayoffStrategy, spots []float64, k, premium float64) ([]float64, error) {
	if err := checkPayoffParams(k, premium); err != nil {
		return nil, err
	}
	out := make([]float64, len(spots))
	for i, s := range spots {
		if err := requireFinite("S", s); err != nil {
			return nil, err
		}
		v, err := payoff(strategy, s, k, premium)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func checkPayoffParams(k, premium float64) error {
	if err := requireFinite("K", k); err != nil {
		return err
	}
	return requireFinite("premium", premium)
}

func payoff(strategy PayoffStrategy, s, k, premium float64) (float64, error) {
	switch strategy {
	case StrategyLongCall:
		return math.Max(s-k, 0) - premium, nil
	case StrategyLongPut:
		return math.Max(k-s, 0) - premium, nil
	case StrategyShortCall:
		return premium - math.Max(s-k, 0), nil
	case StrategyShortPut:
		return premium - math.Max(k-s, 0), nil
	default:
		return 0, &InputError{Param: "strategy", Value: strategy, Reason: "unknown payoff strategy"}
	}
}

// PayoffProfile 四种头寸在同一组标的价格上的收益曲线
type PayoffProfile struct {
	Spots       []float64                    `json:"spots"`
	CallPremium float64                      `json:"call_premium"`
	PutPremium  float64                      `json:"put_premium"`
	Curves      map[PayoffStrategy][]float64 `json:"curves"`
}

// BuildPayoffProfile 在 [0.5S, 1.5S] 上均匀采样，权利金取模型理论价
func BuildPayoffProfile(in BlackScholesInput, points int) (*PayoffProfile, error) {
	if points == 0 {
		points = DefaultPayoffPoints
	}
	if points < 2 {
		return nil, &InputError{Param: "points", Value: points, Reason: "must be >= 2"}
	}
	prices, err := CalculateBlackScholes(in)
	if err != nil {
		return nil, err
	}

	spots := linspace(points, 0.5*in.S, 1.5*in.S)
	profile := &PayoffProfile{
		Spots:       spots,
		CallPremium: prices.Call,
		PutPremium:  prices.Put,
		Curves:      make(map[PayoffStrategy][]float64, len(PayoffStrategies)),
	}
	for _, st := range PayoffStrategies {
		premium := prices.Call
		if st == StrategyLongPut || st == StrategyShortPut {
			premium = prices.Put
		}
		curve, err := Payoffs(st, spots, in.K, premium)
		if err != nil {
			return nil, err
		}
		profile.Curves[st] = curve
	}
	return profile, nil
}
