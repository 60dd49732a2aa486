// Package rules validates monitoring-rule parameter payloads and decodes them
// into one typed value per rule type.
package rules

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

// Type is a monitoring rule type. It cannot change once a rule exists.
type Type string

const (
	TypeThreshold   Type = "threshold"
	TypeVelocity    Type = "velocity"
	TypeStructuring Type = "structuring"
	TypeGeography   Type = "geography"
	TypePattern     Type = "pattern"
)

// Known reports whether t is any of the five rule types.
func (t Type) Known() bool {
	switch t {
	case TypeThreshold, TypeVelocity, TypeStructuring, TypeGeography, TypePattern:
		return true
	}
	return false
}

// Implemented reports whether t has a parameter schema.
func (t Type) Implemented() bool {
	return t == TypeThreshold || t == TypeVelocity || t == TypeStructuring
}

// Parameters is the decoded parameter set of one rule type.
type Parameters interface {
	Type() Type
	// ToMap renders the parameters in the same shape Validate accepts.
	ToMap() map[string]interface{}
	Equal(other Parameters) bool
}

// ThresholdParams flags a single transaction at or above Amount.
type ThresholdParams struct {
	Amount   decimal.Decimal
	Currency string
}

func (ThresholdParams) Type() Type { return TypeThreshold }

func (p ThresholdParams) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"amount":   json.Number(p.Amount.String()),
		"currency": p.Currency,
	}
}

func (p ThresholdParams) Equal(other Parameters) bool {
	o, ok := other.(ThresholdParams)
	return ok && p.Amount.Equal(o.Amount) && p.Currency == o.Currency
}

// VelocityParams flags cumulative volume above Amount within PeriodDays.
type VelocityParams struct {
	Amount     decimal.Decimal
	PeriodDays int
}

func (VelocityParams) Type() Type { return TypeVelocity }

func (p VelocityParams) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"amount":      json.Number(p.Amount.String()),
		"period_days": p.PeriodDays,
	}
}

func (p VelocityParams) Equal(other Parameters) bool {
	o, ok := other.(VelocityParams)
	return ok && p.Amount.Equal(o.Amount) && p.PeriodDays == o.PeriodDays
}

// StructuringParams flags at least MinTransactions just below Threshold inside WindowHours.
type StructuringParams struct {
	Threshold       decimal.Decimal
	WindowHours     int
	MinTransactions int
}

func (StructuringParams) Type() Type { return TypeStructuring }

func (p StructuringParams) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"threshold":        json.Number(p.Threshold.String()),
		"window_hours":     p.WindowHours,
		"min_transactions": p.MinTransactions,
	}
}

func (p StructuringParams) Equal(other Parameters) bool {
	o, ok := other.(StructuringParams)
	return ok && p.Threshold.Equal(o.Threshold) &&
		p.WindowHours == o.WindowHours && p.MinTransactions == o.MinTransactions
}

// Validate checks params against the schema of ruleType and returns the typed value.
func Validate(ruleType string, params map[string]interface{}) (Parameters, error) {
	t := Type(strings.ToLower(strings.TrimSpace(ruleType)))
	switch t {
	case TypeThreshold:
		amount, err := positiveDecimal(params, "amount")
		if err != nil {
			return nil, err
		}
		currency, err := currencyCode(params, "currency")
		if err != nil {
			return nil, err
		}
		return ThresholdParams{Amount: amount, Currency: currency}, nil

	case TypeVelocity:
		amount, err := positiveDecimal(params, "amount")
		if err != nil {
			return nil, err
		}
		days, err := positiveInt(params, "period_days", 1)
		if err != nil {
			return nil, err
		}
		return VelocityParams{Amount: amount, PeriodDays: days}, nil

	case TypeStructuring:
		threshold, err := positiveDecimal(params, "threshold")
		if err != nil {
			return nil, err
		}
		hours, err := positiveInt(params, "window_hours", 1)
		if err != nil {
			return nil, err
		}
		count, err := positiveInt(params, "min_transactions", 2)
		if err != nil {
			return nil, err
		}
		return StructuringParams{Threshold: threshold, WindowHours: hours, MinTransactions: count}, nil

	case TypeGeography, TypePattern:
		return nil, apperrors.NotImplemented(string(t) + " rules")

	default:
		return nil, apperrors.NotImplemented(fmt.Sprintf("rule type %q", ruleType))
	}
}

// Decode is Validate over a JSON object.
func Decode(ruleType string, raw []byte) (Parameters, error) {
	params := map[string]interface{}{}
	if len(raw) > 0 {
		dec := json.NewDecoder(strings.NewReader(string(raw)))
		dec.UseNumber()
		if err := dec.Decode(&params); err != nil {
			return nil, apperrors.NewLocalizedValidationError("parameters",
				"parameters must be a JSON object", "يجب أن تكون المعايير كائن JSON")
		}
	}
	return Validate(ruleType, params)
}

func number(params map[string]interface{}, field string) (decimal.Decimal, error) {
	raw, ok := params[field]
	if !ok || raw == nil {
		return decimal.Zero, missing(field)
	}

	var (
		d   decimal.Decimal
		err error
	)
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			err = fmt.Errorf("not a finite number")
			break
		}
		d = decimal.NewFromFloat(v)
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			err = fmt.Errorf("not a finite number")
			break
		}
		d = decimal.NewFromFloat32(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(v))
	case decimal.Decimal:
		d = v
	default:
		err = fmt.Errorf("unsupported type %T", raw)
	}
	if err != nil {
		return decimal.Zero, apperrors.NewLocalizedValidationError(field,
			field+" must be a number", "يجب أن يكون الحقل "+field+" رقماً")
	}
	return d, nil
}

func positiveDecimal(params map[string]interface{}, field string) (decimal.Decimal, error) {
	d, err := number(params, field)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, apperrors.NewLocalizedValidationError(field,
			field+" must be greater than 0", "يجب أن يكون الحقل "+field+" أكبر من صفر")
	}
	return d, nil
}

func positiveInt(params map[string]interface{}, field string, min int64) (int, error) {
	d, err := number(params, field)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, apperrors.NewLocalizedValidationError(field,
			field+" must be a whole number", "يجب أن يكون الحقل "+field+" عدداً صحيحاً")
	}
	if d.LessThan(decimal.NewFromInt(min)) {
		return 0, apperrors.NewLocalizedValidationError(field,
			fmt.Sprintf("%s must be at least %d", field, min),
			fmt.Sprintf("يجب ألا يقل الحقل %s عن %d", field, min))
	}
	return int(d.IntPart()), nil
}

func currencyCode(params map[string]interface{}, field string) (string, error) {
	raw, ok := params[field]
	if !ok || raw == nil {
		return "", missing(field)
	}
	s, ok := raw.(string)
	s = strings.ToUpper(strings.TrimSpace(s))
	if !ok || len(s) != 3 || strings.Trim(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
		return "", apperrors.NewLocalizedValidationError(field,
			field+" must be a 3-letter ISO 4217 code", "يجب أن يكون رمز العملة من ثلاثة أحرف")
	}
	return s, nil
}

func missing(field string) error {
	return apperrors.NewLocalizedValidationError(field,
		field+" is required", "الحقل "+field+" مطلوب")
}
