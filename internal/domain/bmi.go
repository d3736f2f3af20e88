package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// BMI category labels.
const (
	BMICategoryUnknown     = "—"
	BMICategoryUnderweight = "Underweight"
	BMICategoryNormal      = "Normal"
	BMICategoryOverweight  = "Overweight"
	BMICategoryObese       = "Obese"
)

// leadingFloat matches the longest numeric prefix of a string, so "170cm" parses as 170.
var leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ComputeBMI returns weight / (height in meters)^2 rounded to one decimal place.
// It returns nil when either input has no numeric prefix or parses to zero.
func ComputeBMI(heightCm, weightKg string) *float64 {
	h, ok := parseLeadingFloat(heightCm)
	if !ok || h == 0 {
		return nil
	}
	w, ok := parseLeadingFloat(weightKg)
	if !ok || w == 0 {
		return nil
	}
	hm := h / 100.0
	bmi := roundTenth(w / (hm * hm))
	if math.IsNaN(bmi) || math.IsInf(bmi, 0) {
		return nil
	}
	return &bmi
}

// BMICategory labels a BMI value. Boundaries are half-open: [18.5, 25) is Normal.
func BMICategory(bmi *float64) string {
	if bmi == nil {
		return BMICategoryUnknown
	}
	switch v := *bmi; {
	case v < 18.5:
		return BMICategoryUnderweight
	case v < 25:
		return BMICategoryNormal
	case v < 30:
		return BMICategoryOverweight
	default:
		return BMICategoryObese
	}
}

// FormatBMI renders a BMI for display, using the unknown label for nil.
func FormatBMI(bmi *float64) string {
	if bmi == nil {
		return BMICategoryUnknown
	}
	return strconv.FormatFloat(*bmi, 'f', -1, 64)
}

func parseLeadingFloat(s string) (float64, bool) {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// roundTenth rounds half toward positive infinity.
func roundTenth(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
