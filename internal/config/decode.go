package config

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// viperDecimalHook returns a viper.DecoderConfigOption that teaches
// mapstructure how to decode JSON numbers and strings into
// decimal.Decimal fields, since viper has no native support for it.
func viperDecimalHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		decimalDecodeHook,
		mapstructure.StringToTimeDurationHookFunc(),
	))
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func decimalDecodeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return data, nil
	}
}
