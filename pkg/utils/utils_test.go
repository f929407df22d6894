package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateEthereumAddress(t *testing.T) {
	tests := []struct {
		address string
		valid   bool
	}{
		{"0x742d35Cc6e56A0e24C1D887FC9b50f08a2B6F4bC", true},
		{"0x0000000000000000000000000000000000000000", true},
		{"742d35Cc6e56A0e24C1D887FC9b50f08a2B6F4bC", false},    // No 0x prefix
		{"0x742d35Cc6e56A0e24C1D887FC9b50f08a2B6F4b", false},   // Too short
		{"0x742d35Cc6e56A0e24C1D887FC9b50f08a2B6F4bCC", false}, // Too long
		{"0xGGGd35Cc6e56A0e24C1D887FC9b50f08a2B6F4bC", false},  // Invalid hex
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateEthereumAddress(tt.address))
		})
	}
}

func TestValidateEthereumHash(t *testing.T) {
	tests := []struct {
		hash  string
		valid bool
	}{
		{"0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef", true},
		{"1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef", false},   // No 0x prefix
		{"0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcd", false},   // Too short
		{"0xGGGG567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef", false}, // Invalid hex
	}

	for _, tt := range tests {
		t.Run(tt.hash, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateEthereumHash(tt.hash))
		})
	}
}

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01", "0xabcdef0123456789abcdef0123456789abcdef01"},
		{"embedded", "wallet: 0xabcdef0123456789abcdef0123456789abcdef01 (main)", "0xabcdef0123456789abcdef0123456789abcdef01"},
		{"first wins", "0x1111111111111111111111111111111111111111 0x2222222222222222222222222222222222222222", "0x1111111111111111111111111111111111111111"},
		{"none", "hello world", ""},
		{"too short", "0x1234", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractAddress(tt.input))
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", NormalizeAddress("  0xABCDEF0123456789ABCDEF0123456789ABCDEF01 "))
	assert.Equal(t, "", NormalizeAddress("not-an-address"))
}

func TestMethodID(t *testing.T) {
	assert.Equal(t, "0x095ea7b3", MethodID("0x095EA7B3000000000000000000000000"))
	assert.Equal(t, "0x095ea7b3", MethodID("095ea7b3ff"))
	assert.Equal(t, "", MethodID("0x"))
	assert.Equal(t, "", MethodID("0x1234"))
}

func TestIsEmptyInput(t *testing.T) {
	assert.True(t, IsEmptyInput(""))
	assert.True(t, IsEmptyInput("0x"))
	assert.True(t, IsEmptyInput("0x0"))
	assert.False(t, IsEmptyInput("0x095ea7b3"))
}

func TestWeiToEther(t *testing.T) {
	tests := []struct {
		wei      string
		expected string
	}{
		{"1000000000000000000", "1"},
		{"0", "0"},
		{"-500000000000000000", "-0.5"},
		{"1234500000000000000", "1.2345"},
		{"1", "0.000000000000000001"},
		{"garbage", "0"},
		{"", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.wei, func(t *testing.T) {
			assert.Equal(t, tt.expected, WeiToEther(tt.wei))
		})
	}
}

func TestMulDecimalStrings(t *testing.T) {
	assert.Equal(t, "42000000000", MulDecimalStrings("21000", "2000000"))
	assert.Equal(t, "", MulDecimalStrings("21000", "x"))
	assert.Equal(t, "", MulDecimalStrings("", "1"))
}

func TestParseBigInt(t *testing.T) {
	v, ok := ParseBigInt("123456789012345678901234567890")
	assert.True(t, ok)
	assert.Equal(t, "123456789012345678901234567890", v.String())

	_, ok = ParseBigInt("1.5")
	assert.False(t, ok)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{30 * time.Second, "30.0s"},
		{90 * time.Second, "1.5m"},
		{3 * time.Hour, "3.0h"},
		{25 * time.Hour, "1.0d"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.duration))
		})
	}
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 1, ClampInt(0, 1, 12))
	assert.Equal(t, 12, ClampInt(50, 1, 12))
	assert.Equal(t, 4, ClampInt(4, 1, 12))
}
