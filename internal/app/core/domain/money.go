package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyScale 金額精度：小數點後 2 位
const CurrencyScale = 2

// ParseAmount 解析金額字串 (例如 "1000.00")
//
// 參數:
//
//	s: 金額字串
//
// 回傳:
//
//	decimal.Decimal: 金額
//	error: 格式錯誤時回傳 ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return amount, nil
}

// ValidateAmount 金額必須大於 0，且小數位數不可超過 CurrencyScale
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(CurrencyScale)) {
		return ErrInvalidAmount
	}
	return nil
}
