package model

import (
	"math"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
)

// optFloat reads a numeric field that may arrive as a number or a numeric
// string. Anything else (missing, null, bool, garbage text) reads as absent.
func optFloat(r gjson.Result) *float64 {
	if r.Type != gjson.Number && r.Type != gjson.String {
		return nil
	}
	f, err := cast.ToFloat64E(r.Value())
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// optInt is optFloat truncated toward zero. Values past the int range
// saturate at math.MaxInt or math.MinInt.
func optInt(r gjson.Result) *int {
	f := optFloat(r)
	if f == nil {
		return nil
	}
	n := SaturatingInt(*f)
	return &n
}

// SaturatingInt truncates f toward zero, clamping to the int range. NaN
// reads as 0.
func SaturatingInt(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}

func floatOr(r gjson.Result, def float64) float64 {
	if f := optFloat(r); f != nil {
		return *f
	}
	return def
}

// stringList collects the string elements of an array, skipping anything that
// is not a scalar.
func stringList(r gjson.Result) []string {
	if !r.IsArray() {
		return nil
	}
	var out []string
	r.ForEach(func(_, v gjson.Result) bool {
		switch v.Type {
		case gjson.String, gjson.Number:
			out = append(out, v.String())
		}
		return true
	})
	return out
}

func validJSON(data []byte) bool {
	return gjson.ValidBytes(data)
}
