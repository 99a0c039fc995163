package policy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v int64) *int64 { return &v }

func TestReimbursement(t *testing.T) {
	tests := []struct {
		name      string
		guarantee Guarantee
		expense   int64
		want      int64
	}{
		{"rate applied after deductible", Guarantee{RateBasisPoints: ptr(7000), DeductibleCents: 1000}, 11000, 7000},
		{"capped by ceiling", Guarantee{RateBasisPoints: ptr(10000), CeilingCents: ptr(5000)}, 9000, 5000},
		{"expense below deductible", Guarantee{RateBasisPoints: ptr(10000), DeductibleCents: 2000}, 1500, 0},
		{"no rate", Guarantee{CeilingCents: ptr(5000)}, 9000, 0},
		{"uncapped", Guarantee{RateBasisPoints: ptr(8000)}, 12345, 9876},
		{"large expense does not wrap", Guarantee{RateBasisPoints: ptr(7000), DeductibleCents: 1000}, 1_000_000_000_000_000_000, 699_999_999_999_999_300},
		{"product beyond int64 saturates", Guarantee{RateBasisPoints: ptr(20_000)}, math.MaxInt64, math.MaxInt64},
		{"saturated amount still capped", Guarantee{RateBasisPoints: ptr(20_000), CeilingCents: ptr(5000)}, math.MaxInt64, 5000},
		{"negative rate pays nothing", Guarantee{RateBasisPoints: ptr(-100)}, 9000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.guarantee.Reimbursement(tt.expense))
		})
	}
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1234.50 EUR", FormatCents(123450))
	assert.Equal(t, "0.05 EUR", FormatCents(5))
	assert.Equal(t, "-3.00 EUR", FormatCents(-300))
	assert.Equal(t, "70%", formatRate(7000))
	assert.Equal(t, "12.5%", formatRate(1250))
	assert.Equal(t, "0.75%", formatRate(75))
}
