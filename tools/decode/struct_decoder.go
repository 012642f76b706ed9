package decode

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Options 用于定制 Decode 行为。
type Options struct {
	// 宽松解码：例如 "123" -> int、1.0 -> int64 等。
	WeaklyTypedInput bool
	// TagName is the struct tag read for field names, "yaml" by default.
	TagName string
	// ErrorUnused fails on keys that match no field.
	ErrorUnused bool
	// ZeroFields replaces slices and maps instead of merging into them.
	ZeroFields bool
}

// DefaultOptions 返回默认选项。
func DefaultOptions() Options {
	return Options{
		WeaklyTypedInput: true,
		TagName:          "yaml",
		ZeroFields:       true,
	}
}

// Into decodes m onto out, which must be a pointer. Fields of out that m
// does not mention keep their current values, so out can be pre-filled with
// defaults. A slice that m does mention is replaced as a whole.
func Into(m map[string]any, out any, opts ...Options) error {
	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
		if cfg.TagName == "" {
			cfg.TagName = "yaml"
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          cfg.TagName,
		Result:           out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
		ErrorUnused:      cfg.ErrorUnused,
		ZeroFields:       cfg.ZeroFields,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			floatToIntHook(),
		),
	})
	if err != nil {
		return fmt.Errorf("new decoder: %w", err)
	}
	if err := dec.Decode(m); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// Map 将 map 解码为新的 T。
func Map[T any](m map[string]any, opts ...Options) (*T, error) {
	var out T
	if err := Into(m, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

// floatToIntHook：把 float64 自动转为 int / int32 / int64，仅限整数值。
func floatToIntHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.Float64 {
			return data, nil
		}
		f := data.(float64)
		if f != float64(int64(f)) {
			return data, nil
		}
		switch to {
		case reflect.Int:
			return int(f), nil
		case reflect.Int16:
			return int16(f), nil
		case reflect.Int32:
			return int32(f), nil
		case reflect.Int64:
			return int64(f), nil
		}
		return data, nil
	}
}
