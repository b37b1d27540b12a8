package toolbox

// dotWide runs the generated kernel.  Lengths must match.
func dotWide(x, y []int32) int64 {
	if len(x) != len(y) {
		panic("mismatched length")
	}
	return dotWideKernel(x, y)
}
