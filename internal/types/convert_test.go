package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToInt64(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected int64
	}{
		{name: "int64", input: int64(42), expected: 42},
		{name: "int", input: int(100), expected: 100},
		{name: "int32", input: int32(200), expected: 200},
		{name: "uint8", input: uint8(255), expected: 255},
		{name: "uint64", input: uint64(1000), expected: 1000},
		{name: "float64 truncates", input: float64(42.9), expected: 42},
		{name: "float32", input: float32(100.0), expected: 100},
		{name: "negative", input: int64(-7), expected: -7},
		{name: "byte slice", input: []byte("1234"), expected: 1234},
		{name: "numeric string", input: "99", expected: 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToInt64(tt.input))
		})
	}
}

func TestToInt64_UnsupportedTypes(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{name: "nil", input: nil},
		{name: "non-numeric string", input: "abc"},
		{name: "bool", input: true},
		{name: "slice", input: []int{1, 2, 3}},
		{name: "struct", input: struct{ Value int }{Value: 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, int64(0), ToInt64(tt.input), "Unsupported types should return 0")
		})
	}
}

func TestToText(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{name: "string", input: "alice", expected: "alice"},
		{name: "empty string", input: "", expected: ""},
		{name: "bytes", input: []byte("bob"), expected: "bob"},
		{name: "int64", input: int64(17), expected: "17"},
		{name: "int", input: -3, expected: "-3"},
		{name: "uint32", input: uint32(9), expected: "9"},
		{name: "integral float", input: 7.0, expected: "7"},
		{name: "fractional float", input: 2.5, expected: "2.5"},
		{name: "float32", input: float32(0.5), expected: "0.5"},
		{name: "nan", input: math.NaN(), expected: "nan"},
		{name: "inf", input: math.Inf(1), expected: "inf"},
		{name: "bool", input: true, expected: "true"},
		{name: "time", input: ts, expected: "2024-03-01T12:30:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToText(tt.input)
			assert.True(t, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestToText_Null(t *testing.T) {
	got, ok := ToText(nil)
	assert.False(t, ok)
	assert.Empty(t, got)
}
