package domain

import (
	"fmt"
	"math/big"
	"strings"
)

// RatioScale is the denominator of the variable fee ratio. Ratios are stored
// as integer parts-per-1e17 so the money path never touches floats.
const RatioScale = 100_000_000_000_000_000

const (
	minSymbolLen = 1
	maxSymbolLen = 7
	maxPrecision = 18
)

// Symbol identifies a token: an uppercase code plus the number of decimal
// places every amount of that token is expressed with.
type Symbol struct {
	Code      string
	Precision uint8
}

// ParseSymbol parses the "4,TLOS" wire form.
func ParseSymbol(s string) (Symbol, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return Symbol{}, fmt.Errorf("invalid symbol %q", s)
	}
	precision := 0
	for _, c := range parts[0] {
		if c < '0' || c > '9' {
			return Symbol{}, fmt.Errorf("invalid symbol precision %q", parts[0])
		}
		precision = precision*10 + int(c-'0')
	}
	if precision > maxPrecision {
		return Symbol{}, fmt.Errorf("symbol precision %d exceeds %d", precision, maxPrecision)
	}
	if err := validateSymbolCode(parts[1]); err != nil {
		return Symbol{}, err
	}
	return Symbol{Code: parts[1], Precision: uint8(precision)}, nil
}

func validateSymbolCode(code string) error {
	if len(code) < minSymbolLen || len(code) > maxSymbolLen {
		return fmt.Errorf("invalid symbol code %q", code)
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return fmt.Errorf("invalid symbol code %q", code)
		}
	}
	return nil
}

func (s Symbol) String() string {
	return fmt.Sprintf("%d,%s", s.Precision, s.Code)
}

// Asset is an amount of a token in minor units.
type Asset struct {
	Amount *big.Int
	Symbol Symbol
}

// NewAsset wraps minor units into an asset of the given symbol.
func NewAsset(amount *big.Int, symbol Symbol) Asset {
	if amount == nil {
		amount = new(big.Int)
	}
	return Asset{Amount: new(big.Int).Set(amount), Symbol: symbol}
}

// ZeroAsset returns a zero amount of the given symbol.
func ZeroAsset(symbol Symbol) Asset {
	return Asset{Amount: new(big.Int), Symbol: symbol}
}

// ParseAsset parses the "123.4567 TLOS" wire form. The number of fractional
// digits is the precision, so "1.0 TLOS" and "1.0000 TLOS" are different
// symbols.
func ParseAsset(s string) (Asset, error) {
	parts := strings.SplitN(strings.TrimSpace(s), " ", 2)
	if len(parts) != 2 {
		return Asset{}, fmt.Errorf("invalid asset %q", s)
	}
	if err := validateSymbolCode(parts[1]); err != nil {
		return Asset{}, err
	}

	numStr := parts[0]
	neg := strings.HasPrefix(numStr, "-")
	numStr = strings.TrimPrefix(numStr, "-")

	intPart := numStr
	fracPart := ""
	if dot := strings.IndexByte(numStr, '.'); dot >= 0 {
		intPart, fracPart = numStr[:dot], numStr[dot+1:]
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return Asset{}, fmt.Errorf("invalid asset amount %q", parts[0])
	}
	if len(fracPart) > maxPrecision {
		return Asset{}, fmt.Errorf("asset precision %d exceeds %d", len(fracPart), maxPrecision)
	}

	amount, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return Asset{}, fmt.Errorf("invalid asset amount %q", parts[0])
	}
	if neg {
		amount.Neg(amount)
	}

	return Asset{
		Amount: amount,
		Symbol: Symbol{Code: parts[1], Precision: uint8(len(fracPart))},
	}, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// String formats the asset back to the wire form with exactly
// Symbol.Precision fractional digits.
func (a Asset) String() string {
	amount := a.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	digits := amount.String()
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	precision := int(a.Symbol.Precision)
	if len(digits) <= precision {
		digits = strings.Repeat("0", precision-len(digits)+1) + digits
	}

	out := digits
	if precision > 0 {
		out = digits[:len(digits)-precision] + "." + digits[len(digits)-precision:]
	}
	if neg {
		out = "-" + out
	}
	return out + " " + a.Symbol.Code
}

// SameSymbol reports whether both assets share code and precision.
func (a Asset) SameSymbol(other Asset) bool {
	return a.Symbol == other.Symbol
}

// IsZero reports whether the amount is exactly zero.
func (a Asset) IsZero() bool {
	return a.Amount == nil || a.Amount.Sign() == 0
}

// IsNegative reports whether the amount is below zero.
func (a Asset) IsNegative() bool {
	return a.Amount != nil && a.Amount.Sign() < 0
}

// Add returns a + b. The symbols must match.
func (a Asset) Add(b Asset) (Asset, error) {
	if !a.SameSymbol(b) {
		return Asset{}, fmt.Errorf("wrong token: cannot add %s to %s", b.Symbol, a.Symbol)
	}
	return Asset{
		Amount: new(big.Int).Add(a.Amount, b.Amount),
		Symbol: a.Symbol,
	}, nil
}

// Sub returns a - b. The symbols must match.
func (a Asset) Sub(b Asset) (Asset, error) {
	if !a.SameSymbol(b) {
		return Asset{}, fmt.Errorf("wrong token: cannot subtract %s from %s", b.Symbol, a.Symbol)
	}
	return Asset{
		Amount: new(big.Int).Sub(a.Amount, b.Amount),
		Symbol: a.Symbol,
	}, nil
}

// Cmp compares amounts, -1/0/+1. The symbols must match.
func (a Asset) Cmp(b Asset) (int, error) {
	if !a.SameSymbol(b) {
		return 0, fmt.Errorf("wrong token: cannot compare %s with %s", b.Symbol, a.Symbol)
	}
	return a.Amount.Cmp(b.Amount), nil
}

// Clone returns a deep copy so callers can mutate freely.
func (a Asset) Clone() Asset {
	return NewAsset(a.Amount, a.Symbol)
}

// ParseRatio parses a decimal ratio like "0.007" into parts-per-1e17.
// Values outside [0, 1] or with more than 17 fractional digits are invalid.
func ParseRatio(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty ratio")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("ratio must not be negative")
	}

	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return 0, fmt.Errorf("invalid ratio %q", s)
	}
	if len(fracPart) > 17 {
		return 0, fmt.Errorf("ratio %q has too many digits", s)
	}

	fracPart += strings.Repeat("0", 17-len(fracPart))
	value, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return 0, fmt.Errorf("invalid ratio %q", s)
	}
	if value.Cmp(big.NewInt(RatioScale)) > 0 {
		return 0, fmt.Errorf("ratio %q exceeds 1", s)
	}
	return value.Uint64(), nil
}

// ApplyRatio returns floor(amount * ratio / RatioScale).
func ApplyRatio(amount *big.Int, ratio uint64) *big.Int {
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(ratio))
	return out.Quo(out, big.NewInt(RatioScale))
}
