package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput 输入参数非法（非正数、非有限数或区间错误）
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoData 标的没有可用的期权链数据
	ErrNoData = errors.New("no data available for this symbol")
)

// InputError 描述具体哪个参数非法，errors.Is(err, ErrInvalidInput) 成立
type InputError struct {
	Param  string
	Value  any
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %s", ErrInvalidInput, e.Param, e.Value, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func requireFinite(param string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &InputError{Param: param, Value: v, Reason: "must be finite"}
	}
	return nil
}

func requirePositive(param string, v float64) error {
	if err := requireFinite(param, v); err != nil {
		return err
	}
	if v <= 0 {
		return &InputError{Param: param, Value: v, Reason: "must be > 0"}
	}
	return nil
}
