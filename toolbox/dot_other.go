//go:build !amd64

package toolbox

func dotWide(x, y []int32) int64 {
	if len(x) != len(y) {
		panic("mismatched length")
	}
	return dotWideGeneric(x, y)
}
