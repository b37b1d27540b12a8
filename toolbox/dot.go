package toolbox

//go:generate go run ./asm-generators/dot-wide -out dot_wide_amd64.s -stubs dot_wide_stub_amd64.go

// dotWideNaive is the reference kernel: raw products summed left to right in
// an int64.
func dotWideNaive(x, y []int32) int64 {
	if len(x) != len(y) {
		panic("mismatched length")
	}
	var sum int64
	for i := range len(x) {
		sum += int64(x[i]) * int64(y[i])
	}
	return sum
}

// dotWideGeneric sums raw products into an int64 using four independent
// accumulators.  Integer addition modulo 2^64 is associative, so the result
// is bit-identical to dotWideNaive for every input.
func dotWideGeneric(x, y []int32) int64 {
	var s0, s1, s2, s3 int64

	// Slicing by constants keeps the bounds-check elimination pass happy.
	for len(x) >= 4 && len(y) >= 4 {
		s0 += int64(x[0]) * int64(y[0])
		s1 += int64(x[1]) * int64(y[1])
		s2 += int64(x[2]) * int64(y[2])
		s3 += int64(x[3]) * int64(y[3])
		x = x[4:]
		y = y[4:]
	}

	sum := s0 + s1 + s2 + s3

	// Handle the tail.
	if len(x) == len(y) {
		for i := range len(x) {
			sum += int64(x[i]) * int64(y[i])
		}
	}

	return sum
}
