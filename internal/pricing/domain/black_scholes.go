package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholesInput Black-Scholes 模型输入
type BlackScholesInput struct {
	S float64 // 标的资产价格
	K float64 // 执行价格
	T float64 // 到期时间 (年)
	R float64 // 无风险利率，可为负
	V float64 // 波动率
}

// BlackScholesResult 同一组输入下的看涨与看跌价格
type BlackScholesResult struct {
	Call float64
	Put  float64
}

// Validate 校验输入：S、K、T、V 必须为正，所有参数必须为有限数
func (in BlackScholesInput) Validate() error {
	if err := requirePositive("S", in.S); err != nil {
		return err
	}
	if err := requirePositive("K", in.K); err != nil {
		return err
	}
	if err := requirePositive("T", in.T); err != nil {
		return err
	}
	if err := requireFinite("R", in.R); err != nil {
		return err
	}
	return requirePositive("V", in.V)
}

// Price 计算单个期权的理论价格，结果不做截断
func Price(optionType OptionType, in BlackScholesInput) (float64, error) {
	res, err := CalculateBlackScholes(in)
	if err != nil {
		return 0, err
	}
	switch optionType {
	case OptionTypeCall:
		return res.Call, nil
	case OptionTypePut:
		return res.Put, nil
	default:
		return 0, &InputError{Param: "option_type", Value: optionType, Reason: "must be CALL or PUT"}
	}
}

// CalculateBlackScholes 计算 Black-Scholes 看涨与看跌价格
func CalculateBlackScholes(in BlackScholesInput) (*BlackScholesResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	call, put := blackScholes(in)
	return &BlackScholesResult{Call: call, Put: put}, nil
}

// blackScholes 闭式解，调用方保证输入已校验
func blackScholes(in BlackScholesInput) (call, put float64) {
	volSqrtT := in.V * math.Sqrt(in.T)
	d1 := (math.Log(in.S/in.K) + (in.R+0.5*in.V*in.V)*in.T) / volSqrtT
	d2 := d1 - volSqrtT
	discountedK := in.K * math.Exp(-in.R*in.T)

	call = in.S*normCdf(d1) - discountedK*normCdf(d2)
	put = discountedK*normCdf(-d2) - in.S*normCdf(-d1)
	return call, put
}

// normCdf 标准正态分布累积分布函数
func normCdf(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

func (in BlackScholesInput) String() string {
	return fmt.Sprintf("S=%g K=%g T=%g R=%g V=%g", in.S, in.K, in.T, in.R, in.V)
}
