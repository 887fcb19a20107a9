package value

// UAdd adds a and b as unsigned 32-bit words, returning the wrapped sum
// and the carry-out bit (1 if the true sum overflowed 32 bits).
// Backs OpIAddCarry.
func UAdd(a, b uint32) (sum, carry uint32) {
	sum = a + b
	if sum < a {
		carry = 1
	}
	return sum, carry
}

// USub subtracts b from a as unsigned 32-bit words, returning the
// wrapped difference and the borrow-out bit (1 if b > a). Backs
// OpISubBorrow.
func USub(a, b uint32) (diff, borrow uint32) {
	diff = a - b
	if b > a {
		borrow = 1
	}
	return diff, borrow
}

// UMul multiplies a and b as unsigned 32-bit words, returning the low
// and high words of the full 64-bit product. Backs OpUMulExtended.
func UMul(a, b uint32) (low, high uint32) {
	full := uint64(a) * uint64(b)
	return uint32(full), uint32(full >> 32)
}

// SMul multiplies a and b as signed 32-bit words, returning the low and
// high words of the full 64-bit signed product. Backs OpSMulExtended.
func SMul(a, b int32) (low, high uint32) {
	full := int64(a) * int64(b)
	return uint32(full), uint32(uint64(full) >> 32)
}
