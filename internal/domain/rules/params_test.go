package rules

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

func TestValidate_Threshold(t *testing.T) {
	p, err := Validate("threshold", map[string]interface{}{"amount": float64(10000), "currency": "SAR"})

	require.NoError(t, err)
	tp, ok := p.(ThresholdParams)
	require.True(t, ok)
	assert.True(t, tp.Amount.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, "SAR", tp.Currency)
}

func TestValidate_ThresholdRoundTrip(t *testing.T) {
	first, err := Validate("threshold", map[string]interface{}{"amount": float64(10000), "currency": "SAR"})
	require.NoError(t, err)

	// reserialise through JSON the way the store does
	raw, err := json.Marshal(first.ToMap())
	require.NoError(t, err)
	second, err := Decode("threshold", raw)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.ToMap(), second.ToMap())
	assert.JSONEq(t, `{"amount":10000,"currency":"SAR"}`, string(raw))
}

func TestValidate_RejectsNonPositive(t *testing.T) {
	tests := []struct {
		name     string
		ruleType string
		params   map[string]interface{}
		field    string
	}{
		{"zero amount", "threshold", map[string]interface{}{"amount": 0, "currency": "SAR"}, "amount"},
		{"negative amount", "velocity", map[string]interface{}{"amount": -5, "period_days": 7}, "amount"},
		{"zero period", "velocity", map[string]interface{}{"amount": 500, "period_days": 0}, "period_days"},
		{"zero window", "structuring", map[string]interface{}{"threshold": 1000, "window_hours": 0, "min_transactions": 3}, "window_hours"},
		{"one transaction", "structuring", map[string]interface{}{"threshold": 1000, "window_hours": 24, "min_transactions": 1}, "min_transactions"},
		{"missing currency", "threshold", map[string]interface{}{"amount": 100}, "currency"},
		{"bad currency", "threshold", map[string]interface{}{"amount": 100, "currency": "RIYAL"}, "currency"},
		{"non numeric", "threshold", map[string]interface{}{"amount": "lots", "currency": "SAR"}, "amount"},
		{"fractional days", "velocity", map[string]interface{}{"amount": 500, "period_days": 1.5}, "period_days"},
		{"missing amount", "velocity", map[string]interface{}{"period_days": 3}, "amount"},
		{"nan amount", "threshold", map[string]interface{}{"amount": math.NaN(), "currency": "SAR"}, "amount"},
		{"infinite threshold", "structuring", map[string]interface{}{"threshold": math.Inf(1), "window_hours": 24, "min_transactions": 3}, "threshold"},
		{"infinite float32 amount", "velocity", map[string]interface{}{"amount": float32(math.Inf(-1)), "period_days": 7}, "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.ruleType, tt.params)

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestValidate_AcceptsNumericStrings(t *testing.T) {
	p, err := Validate("structuring", map[string]interface{}{
		"threshold":        "49999.99",
		"window_hours":     "48",
		"min_transactions": json.Number("3"),
	})

	require.NoError(t, err)
	sp := p.(StructuringParams)
	assert.Equal(t, "49999.99", sp.Threshold.String())
	assert.Equal(t, 48, sp.WindowHours)
	assert.Equal(t, 3, sp.MinTransactions)
}

func TestValidate_LowercaseCurrencyIsNormalised(t *testing.T) {
	p, err := Validate("threshold", map[string]interface{}{"amount": 1, "currency": "sar"})

	require.NoError(t, err)
	assert.Equal(t, "SAR", p.(ThresholdParams).Currency)
}

func TestValidate_UnimplementedTypes(t *testing.T) {
	for _, ruleType := range []string{"geography", "pattern", "crystal_ball"} {
		_, err := Validate(ruleType, map[string]interface{}{})
		assert.ErrorIs(t, err, apperrors.ErrNotImplemented, ruleType)
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode("threshold", []byte(`[1,2`))

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestType_Implemented(t *testing.T) {
	assert.True(t, TypeVelocity.Implemented())
	assert.False(t, TypeGeography.Implemented())
	assert.True(t, TypeGeography.Known())
	assert.False(t, Type("other").Known())
}
