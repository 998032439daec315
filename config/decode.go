package config

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHook keeps viper's default duration/slice hooks and adds decoding of
// monetary values into decimal.Decimal, rounded to two places.
func decimalHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
			if to != decimalType {
				return data, nil
			}
			var (
				d   decimal.Decimal
				err error
			)
			switch v := data.(type) {
			case string:
				d, err = decimal.NewFromString(v)
			case float64:
				d = decimal.NewFromFloat(v)
			case float32:
				d = decimal.NewFromFloat32(v)
			case int:
				d = decimal.NewFromInt(int64(v))
			case int64:
				d = decimal.NewFromInt(v)
			case decimal.Decimal:
				d = v
			default:
				return nil, fmt.Errorf("cannot decode %T into a monetary value", data)
			}
			if err != nil {
				return nil, fmt.Errorf("parsing monetary value %v: %w", data, err)
			}
			return d.Round(2), nil
		},
	)
}
