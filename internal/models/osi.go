package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// OSI option symbols look like AAPL261218P00100000:
// UNDERLYING + YYMMDD + P/C + 8-digit strike in thousandths of a dollar.

// FormatOSI builds an OSI option symbol from its parts. Strikes are rounded
// to the nearest thousandth of a dollar per the OCC encoding.
func FormatOSI(underlying string, expiration time.Time, right OptionRight, strike float64) string {
	const eps = 1e-9
	strikeInt := int(math.Round(strike*1000 + eps))
	r := "P"
	if right == RightCall {
		r = "C"
	}
	return fmt.Sprintf("%s%s%s%08d", strings.ToUpper(underlying), expiration.Format("060102"), r, strikeInt)
}

// ParseOSI splits an OSI option symbol into underlying, expiration, right,
// and strike. It returns an error for anything that does not match the
// format exactly, including trailing characters after the strike digits.
func ParseOSI(symbol string) (underlying string, expiration time.Time, right OptionRight, strike float64, err error) {
	s := strings.TrimSpace(symbol)
	if len(s) < 16 {
		return "", time.Time{}, "", 0, fmt.Errorf("option symbol too short: %q", symbol)
	}

	// Locate the 6-digit expiration: first six-digit run not embedded in a
	// longer numeric run, followed by P/C and exactly 8 strike digits that
	// end the string.
	for i := 0; i <= len(s)-15; i++ {
		if !isDigits(s[i : i+6]) {
			continue
		}
		if i > 0 && isDigit(s[i-1]) {
			continue
		}
		typeChar := s[i+6]
		var r OptionRight
		switch typeChar {
		case 'P', 'p':
			r = RightPut
		case 'C', 'c':
			r = RightCall
		default:
			continue
		}
		strikeStart := i + 7
		if strikeStart+8 != len(s) || !isDigits(s[strikeStart:]) {
			continue
		}

		exp, perr := time.Parse("060102", s[i:i+6])
		if perr != nil {
			continue
		}
		milli, perr := strconv.ParseInt(s[strikeStart:], 10, 64)
		if perr != nil {
			continue
		}
		u := strings.TrimSpace(s[:i])
		if u == "" {
			return "", time.Time{}, "", 0, fmt.Errorf("option symbol missing underlying: %q", symbol)
		}
		return u, exp, r, float64(milli) / 1000, nil
	}

	return "", time.Time{}, "", 0, fmt.Errorf("not an OSI option symbol: %q", symbol)
}

// UnderlyingFromOSI returns just the underlying ticker, or "" when the
// symbol is not OSI-formatted.
func UnderlyingFromOSI(symbol string) string {
	u, _, _, _, err := ParseOSI(symbol)
	if err != nil {
		return ""
	}
	return u
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
