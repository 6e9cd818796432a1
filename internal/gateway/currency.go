package gateway

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// 小数を持たない通貨（金額がそのまま最小単位）
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {}, "mga": {},
	"pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// 小数3桁の通貨は末尾0の制約があるので扱わない
var threeDecimalCurrencies = map[string]struct{}{
	"bhd": {}, "jod": {}, "kwd": {}, "omr": {}, "tnd": {},
}

// MinorUnitExponent は通貨の小数桁数を返す。扱えない通貨はエラー。
func MinorUnitExponent(currency string) (int32, error) {
	c := strings.ToLower(strings.TrimSpace(currency))
	if len(c) != 3 || strings.Trim(c, "abcdefghijklmnopqrstuvwxyz") != "" {
		return 0, fmt.Errorf("invalid currency code %q", currency)
	}
	if _, ok := threeDecimalCurrencies[c]; ok {
		return 0, fmt.Errorf("unsupported currency %q", currency)
	}
	if _, ok := zeroDecimalCurrencies[c]; ok {
		return 0, nil
	}
	return 2, nil
}

// ToMinorUnits は金額を通貨の最小単位に変換する。端数は四捨五入。
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	exp, err := MinorUnitExponent(currency)
	if err != nil {
		return 0, err
	}
	return amount.Shift(exp).Round(0).IntPart(), nil
}
