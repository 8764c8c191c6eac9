package provider

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid amount")

// FormatAmount renders an amount in minor units the way gateways sign it:
// base 10, no sign for positives, no separators, no fraction.
func FormatAmount(amountMinor int64) string {
	return strconv.FormatInt(amountMinor, 10)
}

// ParseAmount accepts "100000" and "100000.00" but rejects separators,
// signs, exponents and non-zero fractions.
func ParseAmount(raw string) (int64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, ErrInvalidAmount
	}

	whole := value
	if dot := strings.IndexByte(value, '.'); dot >= 0 {
		whole = value[:dot]
		fraction := value[dot+1:]
		if fraction == "" || strings.Trim(fraction, "0") != "" {
			return 0, ErrInvalidAmount
		}
	}
	if whole == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}

	amount, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

var zeroDecimalCurrencies = map[string]bool{
	"IDR": true,
	"CLP": true,
	"JPY": true,
	"KRW": true,
	"VND": true,
	"PYG": true,
}

func currencyExponent(currency string) int {
	if zeroDecimalCurrencies[strings.ToUpper(strings.TrimSpace(currency))] {
		return 0
	}
	return 2
}

// MinorUnits converts a major-unit decimal (as returned by SDKs) into
// integer minor units of the currency.
func MinorUnits(amount float64, currency string) int64 {
	return int64(math.Round(amount * math.Pow10(currencyExponent(currency))))
}

func MajorUnits(amountMinor int64, currency string) float64 {
	return float64(amountMinor) / math.Pow10(currencyExponent(currency))
}
