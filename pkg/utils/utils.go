package utils

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ZeroAddress is the all-zero 20-byte address
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// EtherDecimals is the fixed-point scale of the native coin
const EtherDecimals = 18

var addressPattern = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)

// ExtractAddress finds the first 0x-prefixed 40-hex address in free text and lower-cases it.
// Returns "" when nothing matches.
func ExtractAddress(input string) string {
	m := addressPattern.FindString(input)
	return strings.ToLower(m)
}

// NormalizeAddress lower-cases and trims an address, returning "" if the result is not a valid address
func NormalizeAddress(address string) string {
	a := strings.ToLower(strings.TrimSpace(address))
	if !ValidateEthereumAddress(a) {
		return ""
	}
	return a
}

// ValidateEthereumAddress validates Ethereum address format
func ValidateEthereumAddress(address string) bool {
	if !strings.HasPrefix(address, "0x") {
		return false
	}

	addr := address[2:]
	if len(addr) != 40 {
		return false
	}

	_, err := hex.DecodeString(addr)
	return err == nil
}

// ValidateEthereumHash validates Ethereum hash format (32 bytes)
func ValidateEthereumHash(hash string) bool {
	if !strings.HasPrefix(hash, "0x") {
		return false
	}

	h := hash[2:]
	if len(h) != 64 {
		return false
	}

	_, err := hex.DecodeString(h)
	return err == nil
}

// IsEmptyInput reports whether call data carries no payload
func IsEmptyInput(input string) bool {
	return input == "" || input == "0x" || input == "0x0"
}

// MethodID returns the lower-cased 4-byte selector of call data, or "" when the input is too short
func MethodID(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	if len(s) < 10 {
		return ""
	}
	return s[:10]
}

// ParseBigInt parses a base-10 integer string without going through floats
func ParseBigInt(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	bi, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, false
	}
	return bi, true
}

// MulDecimalStrings multiplies two base-10 integer strings.
// Returns "" when either side does not parse.
func MulDecimalStrings(a, b string) string {
	x, ok := ParseBigInt(a)
	if !ok {
		return ""
	}
	y, ok := ParseBigInt(b)
	if !ok {
		return ""
	}
	return new(big.Int).Mul(x, y).String()
}

// WeiToEther formats a wei amount as an 18-decimal fixed point string with
// trailing zeros trimmed and the sign preserved. Unparseable input yields "0".
func WeiToEther(wei string) string {
	return FormatUnits(wei, EtherDecimals)
}

// FormatUnits formats a base-10 integer string scaled down by decimals
func FormatUnits(raw string, decimals int32) string {
	bi, ok := ParseBigInt(raw)
	if !ok {
		return "0"
	}
	return decimal.NewFromBigInt(bi, -decimals).String()
}

// FormatDuration formats duration in human readable format
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%.1fd", d.Hours()/24)
}

// ClampInt bounds v to [lo, hi]
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
