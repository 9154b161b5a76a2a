package calculator

import "math"

// addInt32 and subInt32 widen to int64 so the exact result can be range
// checked before narrowing back.

func addInt32(a, b int32) (int32, error) {
	r := int64(a) + int64(b)
	if r > math.MaxInt32 || r < math.MinInt32 {
		return 0, &ArithmeticError{Op: "+", A: a, B: b}
	}
	return int32(r), nil
}

func subInt32(a, b int32) (int32, error) {
	r := int64(a) - int64(b)
	if r > math.MaxInt32 || r < math.MinInt32 {
		return 0, &ArithmeticError{Op: "-", A: a, B: b}
	}
	return int32(r), nil
}
