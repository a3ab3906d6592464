package domain

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// LimitConfig holds the regulatory thresholds applied to one fiscal year.
// An AnnualLimit of zero or less disables the limit: every ratio evaluates to 0.
type LimitConfig struct {
	Year          int             `db:"year" json:"year" validate:"gte=1900,lte=9999"`
	AnnualLimit   decimal.Decimal `db:"annual_limit" json:"annual_limit"`
	WarnRatio     decimal.Decimal `db:"warn_ratio" json:"warn_ratio" validate:"gt=0,lt=1"`
	CriticalRatio decimal.Decimal `db:"critical_ratio" json:"critical_ratio" validate:"gt=0,lte=1"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

var limitValidate = newLimitValidator()

func newLimitValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Validate checks ratio bounds: 0 < warn < 1 and warn <= critical <= 1.
func (c *LimitConfig) Validate() error {
	if err := limitValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: year %d: %v", ErrConfiguration, c.Year, err)
	}
	if c.CriticalRatio.LessThan(c.WarnRatio) {
		return fmt.Errorf("%w: year %d: critical ratio %s below warn ratio %s",
			ErrConfiguration, c.Year, c.CriticalRatio, c.WarnRatio)
	}
	return nil
}

// Disabled reports whether the annual limit is degenerate (zero or negative).
func (c *LimitConfig) Disabled() bool {
	return !c.AnnualLimit.IsPositive()
}
