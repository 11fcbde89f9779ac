package domain

import (
	"fmt"
	"math/bits"
)

// CheckedAdd a + b，溢位時回傳 ErrArithmeticOverflow
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrArithmeticOverflow, a, b)
	}
	return sum, nil
}

// CheckedSub a - b，不夠扣時回傳 ErrArithmeticUnderflow (不會自動歸零)
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%w: %d - %d", ErrArithmeticUnderflow, a, b)
	}
	return diff, nil
}

// MulDivFloor 計算 floor(a * b / d)
//
// 乘積用 128 位元保存，所以 a*b 超過 uint64 也不會失真；
// 只有最後的商放不進 uint64 時才回傳 ErrArithmeticOverflow。
func MulDivFloor(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, fmt.Errorf("%w: %d * %d / 0", ErrDivisionByZero, a, b)
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, fmt.Errorf("%w: %d * %d / %d", ErrArithmeticOverflow, a, b, d)
	}
	quo, _ := bits.Div64(hi, lo, d)
	return quo, nil
}
