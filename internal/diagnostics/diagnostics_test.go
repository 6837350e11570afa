package diagnostics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorRateStatus(t *testing.T) {
	tests := []struct {
		rate float64
		want Status
	}{
		{0, StatusHealthy},
		{0.0499, StatusHealthy},
		{0.05, StatusDegraded},
		{0.1999, StatusDegraded},
		{0.2, StatusCritical},
		{0.75, StatusCritical},
		{1, StatusCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorRateStatus(tt.rate), "rate %v", tt.rate)
	}
}

func TestErrorRateAlert(t *testing.T) {
	_, ok := ErrorRateAlert("api", 0.2)
	assert.False(t, ok, "the boundary value is critical but raises no alert")

	_, ok = ErrorRateAlert("api", 0.1)
	assert.False(t, ok)

	msg, ok := ErrorRateAlert("checkout", 0.25)
	assert.True(t, ok)
	assert.Equal(t, "High error rate for checkout: 25.00%", msg)

	msg, ok = ErrorRateAlert("payments", 0.2001)
	assert.True(t, ok)
	assert.Equal(t, "High error rate for payments: 20.01%", msg)
}

func TestUtilizationStatus(t *testing.T) {
	tests := []struct {
		fraction float64
		want     Status
	}{
		{0, StatusHealthy},
		{0.8, StatusHealthy},
		{0.8001, StatusWarning},
		{0.9, StatusWarning},
		{0.9001, StatusCritical},
		{1.2, StatusCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, UtilizationStatus(tt.fraction), "fraction %v", tt.fraction)
	}
}

func TestWorstStatus(t *testing.T) {
	assert.Equal(t, StatusUnknown, WorstStatus())
	assert.Equal(t, StatusHealthy, WorstStatus(StatusHealthy, StatusHealthy))
	assert.Equal(t, StatusDegraded, WorstStatus(StatusHealthy, StatusDegraded))
	assert.Equal(t, StatusCritical, WorstStatus(StatusDegraded, StatusCritical, StatusHealthy))
}

func TestFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"nil", nil, 0},
		{"json number", json.Number("1.5"), 1.5},
		{"bad json number", json.Number("x"), 0},
		{"float64", 2.25, 2.25},
		{"int", 3, 3},
		{"int64", int64(4), 4},
		{"string", "5", 0},
		{"bool", true, 0},
		{"nan", math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Float(tt.in))
		})
	}
}

func TestInt(t *testing.T) {
	assert.Equal(t, int64(0), Int(nil))
	assert.Equal(t, int64(42), Int(json.Number("42")))
	assert.Equal(t, int64(9007199254740993), Int(json.Number("9007199254740993")))
	assert.Equal(t, int64(7), Int(json.Number("7.9")))
	assert.Equal(t, int64(3), Int(3.0))
}

func TestString(t *testing.T) {
	assert.Equal(t, "", String(nil))
	assert.Equal(t, "api", String("api"))
	assert.Equal(t, "12", String(json.Number("12")))
}

func TestColumn(t *testing.T) {
	row := []any{"a", json.Number("1")}
	assert.Equal(t, "a", Column(row, 0))
	assert.Nil(t, Column(row, 2))
	assert.Nil(t, Column(nil, 0))
}

func TestUnitConversions(t *testing.T) {
	assert.Equal(t, 2.5, MicrosToMillis(json.Number("2500")))
	assert.Equal(t, 0.0, MicrosToMillis(nil))
	assert.InDelta(t, 93.0, Percent(json.Number("0.93")), 1e-9)
	assert.Equal(t, 0.0, Percent(nil))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 0.0, Ratio(5, 0))
	assert.Equal(t, 0.0, Ratio(0, 0))
	assert.Equal(t, 0.25, Ratio(1, 4))
}

func TestResourceLabel(t *testing.T) {
	assert.Equal(t, "CPU", ResourceLabel("cpu"))
	assert.Equal(t, "Memory", ResourceLabel("memory"))
	assert.Equal(t, "Disk", ResourceLabel("disk"))
}
