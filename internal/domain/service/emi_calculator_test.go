package service_test

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bureau-service/internal/domain/service"
)

func TestParseRateLowerBound(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"8.5", 8.5, true},
		{"8.35% - 9.10%", 8.35, true},
		{" 9%-11% ", 9, true},
		{"10.25 %", 10.25, true},
		{"7.9% onwards", 7.9, true},
		{"", 0, false},
		{"NA", 0, false},
		{"-", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := service.ParseRateLowerBound(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCalculateEMI(t *testing.T) {
	tests := []struct {
		name      string
		principal int64
		rate      string
		years     int
		want      string
	}{
		{"plain rate", 1000000, "8.5", 20, "8678.23"},
		{"range uses lower bound", 5000000, "8.35% - 9.10%", 20, "42917.65"},
		{"one year", 1200000, "12%", 1, "106618.55"},
		{"fifteen years", 2500000, "9.1", 15, "25505.60"},
		{"zero rate divides evenly", 120000, "0", 1, "10000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emi, ok := service.CalculateEMI(decimal.NewFromInt(tt.principal), tt.rate, tt.years)
			require.True(t, ok)
			assert.Equal(t, tt.want, service.FormatEMI(emi, ok))
		})
	}

	t.Run("unavailable for zero tenure", func(t *testing.T) {
		emi, ok := service.CalculateEMI(decimal.NewFromInt(100000), "8.5", 0)
		assert.False(t, ok)
		assert.Equal(t, service.EMIUnavailable, service.FormatEMI(emi, ok))
	})

	t.Run("unavailable for an unparseable rate", func(t *testing.T) {
		_, ok := service.CalculateEMI(decimal.NewFromInt(100000), "call branch", 20)
		assert.False(t, ok)
	})

	t.Run("unavailable for a negative principal", func(t *testing.T) {
		_, ok := service.CalculateEMI(decimal.NewFromInt(-1), "8.5", 20)
		assert.False(t, ok)
	})
}

func TestCalculateEMI_Monotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	emi := func(p int64, rate float64, years int) decimal.Decimal {
		v, ok := service.CalculateEMI(decimal.NewFromInt(p), strconv.FormatFloat(rate, 'f', 2, 64), years)
		if !ok {
			return decimal.NewFromInt(-1)
		}
		return v
	}

	properties.Property("emi grows with principal", prop.ForAll(
		func(p int64, extra int64, rate float64, years int) bool {
			low := emi(p, rate, years)
			high := emi(p+extra, rate, years)
			return !low.IsNegative() && high.GreaterThanOrEqual(low)
		},
		gen.Int64Range(100000, 50000000),
		gen.Int64Range(1, 10000000),
		gen.Float64Range(0.5, 24),
		gen.IntRange(1, 30),
	))

	properties.Property("emi grows with rate", prop.ForAll(
		func(p int64, rate float64, bump float64, years int) bool {
			low := emi(p, rate, years)
			high := emi(p, rate+bump, years)
			return !low.IsNegative() && high.GreaterThanOrEqual(low)
		},
		gen.Int64Range(100000, 50000000),
		gen.Float64Range(0.5, 20),
		gen.Float64Range(0.01, 5),
		gen.IntRange(1, 30),
	))

	properties.Property("zero tenure is always unavailable", prop.ForAll(
		func(p int64, rate float64) bool {
			_, ok := service.CalculateEMI(decimal.NewFromInt(p), strconv.FormatFloat(rate, 'f', 2, 64), 0)
			return !ok
		},
		gen.Int64Range(0, 50000000),
		gen.Float64Range(0, 24),
	))

	properties.TestingRun(t)
}
