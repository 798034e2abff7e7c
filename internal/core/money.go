// Package core holds the transaction model and the aggregation engine.
//
// This file contains functions for parsing monetary amounts from free text
// and converting between cents and rupee representations.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place.
//
// It accepts optional currency symbols and comma thousands separators, so
// "₹2,500", "2500" and "150.50" all parse. The result is always positive
// cents; invalid formats, signs, and zero amounts return ErrInvalidAmount.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "₹$€ ")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	// Commas are thousands separators here, never decimal marks
	s = strings.ReplaceAll(s, ",", "")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// Rupees returns the rupee value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point drift.
func (m Money) Rupees() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount as a rupee string with digit grouping,
// e.g. "₹2,500" or "₹150.50". Fractional cents are shown only when present.
func (m Money) String() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var grouped strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		grouped.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if grouped.Len() > 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteString(whole[i : i+3])
	}
	s := "₹" + grouped.String()
	if rem := cents % 100; rem != 0 {
		s += "." + strconv.FormatInt(rem/10, 10) + strconv.FormatInt(rem%10, 10)
	}
	if neg {
		return "-" + s
	}
	return s
}
