// Command dot-wide generates dotWideKernel, a scalar amd64 kernel that sums
// sign-extended int32 products into a 64-bit accumulator.
//
// Run from the toolbox directory with `go generate`.
package main

import (
	. "github.com/mmcloughlin/avo/build"
	. "github.com/mmcloughlin/avo/operand"
)

func main() {
	TEXT("dotWideKernel", NOSPLIT, "func(x []int32, y []int32) int64")
	Doc("dotWideKernel returns the sum of x[i]*y[i] modulo 2^64. len(y) must be at least len(x).")

	n := Load(Param("x").Len(), GP64())
	xPtr := Load(Param("x").Base(), GP64())
	yPtr := Load(Param("y").Base(), GP64())

	acc := GP64()
	XORQ(acc, acc)

	Label("dotwideloop")
	CMPQ(n, U32(0))
	JE(LabelRef("dotwidedone"))

	xv := GP64()
	MOVLQSX(Mem{Base: xPtr}, xv)
	yv := GP64()
	MOVLQSX(Mem{Base: yPtr}, yv)
	IMULQ(yv, xv)
	ADDQ(xv, acc)

	ADDQ(U32(4), xPtr)
	ADDQ(U32(4), yPtr)
	DECQ(n)
	JMP(LabelRef("dotwideloop"))

	Label("dotwidedone")
	Store(acc, ReturnIndex(0))
	RET()

	Generate()
}
