package aritmetica

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func comoUint64(p Par) uint64 {
	return uint64(p[0])<<32 | uint64(p[1])
}

func TestMul32_Bordes(t *testing.T) {
	valores := []uint32{0, 1, 2, 0xFFFF, 0x10000, 0x1FFFE, 0x7FFFFFFF, 0x80000000, 0xFFFFFFFE, 0xFFFFFFFF, 0xDEADBEEF}
	for _, x := range valores {
		for _, y := range valores {
			assert.Equal(t, uint64(x)*uint64(y), comoUint64(Mul32(x, y)), "x=%#x y=%#x", x, y)
		}
	}
}

func TestMul32_Aleatorio(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 100000; i++ {
		x, y := r.Uint32(), r.Uint32()
		if got := comoUint64(Mul32(x, y)); got != uint64(x)*uint64(y) {
			t.Fatalf("Mul32(%#x, %#x) = %#x, want %#x", x, y, got, uint64(x)*uint64(y))
		}
	}
}

func TestMul32Signed(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	casos := [][2]int32{{-2, 3}, {3, -2}, {-1, -1}, {-2147483648, -1}, {-2147483648, -2147483648}, {12345, 0}}
	for i := 0; i < 1000; i++ {
		casos = append(casos, [2]int32{int32(r.Uint32()), int32(r.Uint32())})
	}
	for _, c := range casos {
		want := uint64(int64(c[0]) * int64(c[1]))
		assert.Equal(t, want, comoUint64(Mul32Signed(uint32(c[0]), uint32(c[1]))), "x=%d y=%d", c[0], c[1])
	}
}

func TestAdd64Sub64Neg64(t *testing.T) {
	ass := assert.New(t)
	ass.Equal(Par{1, 0}, Add64(Par{0, 0xFFFFFFFF}, Par{0, 1}))
	ass.Equal(Par{0, 0}, Add64(Par{0xFFFFFFFF, 0xFFFFFFFF}, Par{0, 1}))
	ass.Equal(Par{0xFFFFFFFF, 0xFFFFFFFF}, Neg64(Par{0, 1}))
	ass.Equal(Par{0, 0}, Neg64(Par{0, 0}))
	ass.Equal(Par{0, 0xFFFFFFFF}, Sub64(Par{1, 0}, Par{0, 1}))
	ass.Equal(uint32(0), Add32(0xFFFFFFFF, 1))
	ass.Equal(int32(-1), Signed(0xFFFFFFFF))
	ass.Equal(uint32(0xFFFFFFFE), Unsigned(-2))
}
