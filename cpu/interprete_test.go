package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// correrEn ejecuta prog con cada motor (intérprete y recompilador) y devuelve las máquinas detenidas.
func correrEn(t *testing.T, prog []uint32, preparar func(m *Maquina)) map[string]*Maquina {
	t.Helper()
	res := make(map[string]*Maquina)
	for nombre, jit := range map[string]bool{"interprete": false, "jit": true} {
		m := nuevoMotorPrueba(jit).NuevaMaquina()
		cargarPrograma(m, baseCodigo, prog)
		if preparar != nil {
			preparar(m)
		}
		correrHastaDetener(t, m)
		assert.NoError(t, m.Falla(), nombre)
		res[nombre] = m
	}
	return res
}

func TestDelaySlot(t *testing.T) {
	prog := []uint32{
		insI(opBeq, 0, 0, 2),
		insI(opAddiu, 0, 1, 5), // ranura: se ejecuta
		insI(opAddiu, 0, 2, 7), // salteada
		insBreak(),
	}
	for nombre, m := range correrEn(t, prog, nil) {
		assert.Equal(t, uint32(5), m.Regs[1], nombre)
		assert.Equal(t, uint32(0), m.Regs[2], nombre)
	}
}

func TestRegistroCeroSiempreCero(t *testing.T) {
	prog := []uint32{
		insI(opAddiu, 0, 0, 5),
		insR(fnAddu, 0, 0, 0, 0),
		insI(opLui, 0, 0, 1),
		insBreak(),
	}
	for nombre, m := range correrEn(t, prog, nil) {
		assert.Equal(t, uint32(0), m.Regs[0], nombre)
	}
}

func TestOperacionesALU(t *testing.T) {
	tests := []struct {
		nombre string
		op     uint32
		a, b   uint32
		want   uint32
	}{
		{"addu", insR(fnAddu, 4, 5, 2, 0), 0xFFFFFFFF, 2, 1},
		{"subu", insR(fnSubu, 4, 5, 2, 0), 1, 2, 0xFFFFFFFF},
		{"and", insR(fnAnd, 4, 5, 2, 0), 0xF0F0, 0xFF00, 0xF000},
		{"nor", insR(fnNor, 4, 5, 2, 0), 0, 0, 0xFFFFFFFF},
		{"slt negativo", insR(fnSlt, 4, 5, 2, 0), 0xFFFFFFFF, 1, 1},
		{"sltu", insR(fnSltu, 4, 5, 2, 0), 0xFFFFFFFF, 1, 0},
		{"sll", insR(fnSll, 0, 5, 2, 4), 0, 0x0F, 0xF0},
		{"sra", insR(fnSra, 0, 5, 2, 4), 0, 0x80000000, 0xF8000000},
		{"srlv", insR(fnSrlv, 4, 5, 2, 0), 36, 0x80000000, 0x08000000},
		{"slti", insI(opSlti, 4, 2, -1), 0xFFFFFFFE, 0, 1},
		{"sltiu", insI(opSltiu, 4, 2, -1), 5, 0, 1},
		{"andi sin extender", insI(opAndi, 4, 2, -1), 0xFFFFFFFF, 0, 0xFFFF},
		{"xori", insI(opXori, 4, 2, 0x00FF), 0x0F0F, 0, 0x0FF0},
		{"mul", insI(opEspecial2, 4, 5, 0) | 2<<11 | fn2Mul, 7, 6, 42},
		{"clz", insI(opEspecial2, 4, 0, 0) | 2<<11 | fn2Clz, 0x00010000, 0, 15},
		{"clo", insI(opEspecial2, 4, 0, 0) | 2<<11 | fn2Clo, 0xFF000000, 0, 8},
		{"seb", insI(opEspecial3, 0, 5, 0) | 2<<11 | bshflSeb<<6 | fn3Bshfl, 0, 0x80, 0xFFFFFF80},
		{"seh", insI(opEspecial3, 0, 5, 0) | 2<<11 | bshflSeh<<6 | fn3Bshfl, 0, 0x1234, 0x1234},
		{"wsbh", insI(opEspecial3, 0, 5, 0) | 2<<11 | bshflWsbh<<6 | fn3Bshfl, 0, 0x11223344, 0x22114433},
		{"movz", insR(fnMovz, 4, 0, 2, 0), 9, 0, 9},
	}

	for _, tt := range tests {
		t.Run(tt.nombre, func(t *testing.T) {
			for nombre, m := range correrEn(t, []uint32{tt.op, insBreak()}, func(m *Maquina) {
				m.Regs[4], m.Regs[5] = tt.a, tt.b
			}) {
				assert.Equal(t, tt.want, m.Regs[2], nombre)
			}
		})
	}
}

func TestExtIns(t *testing.T) {
	prog := []uint32{
		// ext $2, $4, 8, 4  (msbd=3 en rd, lsb=8 en sa)
		insI(opEspecial3, 4, 2, 0) | 3<<11 | 8<<6 | fn3Ext,
		// ins $5, $4, 4, 8  (msb=11 en rd, lsb=4 en sa)
		insI(opEspecial3, 4, 5, 0) | 11<<11 | 4<<6 | fn3Ins,
		insBreak(),
	}
	for nombre, m := range correrEn(t, prog, func(m *Maquina) {
		m.Regs[4] = 0x0000AB00 | 0xCD
		m.Regs[5] = 0xFFFFFFFF
	}) {
		assert.Equal(t, uint32(0xB), m.Regs[2], nombre)
		assert.Equal(t, uint32(0xFFFFFCDF), m.Regs[5], nombre)
	}
}

func TestRdhwrDevuelveTLS(t *testing.T) {
	prog := []uint32{
		insI(opEspecial3, 0, 3, 0) | hwrULR<<11 | fn3Rdhwr,
		insBreak(),
	}
	for nombre, m := range correrEn(t, prog, func(m *Maquina) { m.TLS = 0x7FFF7000 }) {
		assert.Equal(t, uint32(0x7FFF7000), m.Regs[3], nombre)
	}
}

func TestMultiplicacionYDivision(t *testing.T) {
	tests := []struct {
		nombre string
		fn     uint32
		a, b   uint32
		hi, lo uint32
	}{
		{"mult con signo", fnMult, 0xFFFFFFFE, 3, 0xFFFFFFFF, 0xFFFFFFFA},
		{"multu", fnMultu, 0xFFFFFFFE, 3, 2, 0xFFFFFFFA},
		{"mult grandes", fnMult, 0x7FFFFFFF, 0x7FFFFFFF, 0x3FFFFFFF, 0x00000001},
		{"div trunca", fnDiv, uint32(0xFFFFFFF9), 2, 0xFFFFFFFF, 0xFFFFFFFD},
		{"divu", fnDivu, 100, 7, 2, 14},
		{"div por cero", fnDiv, 5, 0, 0, 0},
		{"divu por cero", fnDivu, 5, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.nombre, func(t *testing.T) {
			prog := []uint32{
				insR(tt.fn, 4, 5, 0, 0),
				insR(fnMfhi, 0, 0, 2, 0),
				insR(fnMflo, 0, 0, 3, 0),
				insBreak(),
			}
			for nombre, m := range correrEn(t, prog, func(m *Maquina) {
				m.Regs[4], m.Regs[5] = tt.a, tt.b
				m.Hi, m.Lo = 0xDEAD, 0xBEEF
			}) {
				assert.Equal(t, tt.hi, m.Regs[2], nombre)
				assert.Equal(t, tt.lo, m.Regs[3], nombre)
			}
		})
	}
}

func TestCargasYAlmacenamientosDesalineados(t *testing.T) {
	prog := []uint32{
		insI(opLwl, 4, 8, 1),
		insI(opLwr, 4, 8, 4),
		insI(opSwl, 5, 9, 1),
		insI(opSwr, 5, 9, 4),
		insI(opLb, 4, 10, 7),
		insI(opLbu, 4, 11, 7),
		insI(opLh, 4, 12, 6),
		insI(opSb, 5, 10, 8),
		insI(opSh, 5, 12, 10),
		insBreak(),
	}
	for nombre, m := range correrEn(t, prog, func(m *Maquina) {
		m.Regs[4], m.Regs[5] = 0x1000, 0x2000
		m.Regs[9] = 0xAABBCCDD
		m.Mem.Escribir(0x1000, []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88})
	}) {
		assert.Equal(t, uint32(0x22334455), m.Regs[8], nombre)
		assert.Equal(t, []byte{0x00, 0xAA, 0xBB, 0xCC, 0xDD, 0x00}, m.Mem.Leer(0x2000, 6), nombre)
		assert.Equal(t, uint32(0xFFFFFF88), m.Regs[10], nombre)
		assert.Equal(t, uint32(0x88), m.Regs[11], nombre)
		assert.Equal(t, uint32(0x7788), m.Regs[12], nombre)
		assert.Equal(t, []byte{0x88, 0x00, 0x77, 0x88}, m.Mem.Leer(0x2008, 4), nombre)
	}
}

func TestSaltosConEnlace(t *testing.T) {
	prog := []uint32{
		insJ(opJal, baseCodigo+5*4),
		insI(opAddiu, 0, 16, 1), // ranura
		insI(opAddiu, 0, 17, 2), // vuelve acá
		insBreak(),
		insNop,
		insR(fnJr, 31, 0, 0, 0), // subrutina
		insR(fnAddu, 31, 0, 18, 0),
	}
	for nombre, m := range correrEn(t, prog, nil) {
		assert.Equal(t, uint32(baseCodigo+8), m.Regs[18], nombre)
		assert.Equal(t, uint32(1), m.Regs[16], nombre)
		assert.Equal(t, uint32(2), m.Regs[17], nombre)
	}
}

func TestJalrLeeDestinoAntesDeEnlazar(t *testing.T) {
	prog := []uint32{
		insR(fnJalr, 31, 0, 31, 0), // jalr $31, $31
		insNop,
		insBreak(),
		insI(opAddiu, 0, 2, 9),
		insBreak(),
	}
	for nombre, m := range correrEn(t, prog, func(m *Maquina) { m.Regs[31] = baseCodigo + 12 }) {
		assert.Equal(t, uint32(9), m.Regs[2], nombre)
		assert.Equal(t, uint32(baseCodigo+8), m.Regs[31], nombre)
	}
}

func TestRegimm(t *testing.T) {
	tests := []struct {
		nombre string
		rt     uint32
		valor  uint32
		tomado bool
		enlaza bool
	}{
		{"bltz tomado", 0x00, 0xFFFFFFFF, true, false},
		{"bltz no tomado", 0x00, 0, false, false},
		{"bgez tomado", 0x01, 0, true, false},
		{"bltzal enlaza aunque no salte", 0x10, 1, false, true},
		{"bgezal", 0x11, 1, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.nombre, func(t *testing.T) {
			prog := []uint32{
				insI(opRegimm, 4, tt.rt, 2),
				insNop,
				insI(opAddiu, 0, 2, 1), // solo si no salta
				insBreak(),
			}
			for nombre, m := range correrEn(t, prog, func(m *Maquina) { m.Regs[4] = tt.valor }) {
				assert.Equal(t, b2u(!tt.tomado), m.Regs[2], nombre)
				if tt.enlaza {
					assert.Equal(t, uint32(baseCodigo+8), m.Regs[31], nombre)
				} else {
					assert.Equal(t, uint32(0), m.Regs[31], nombre)
				}
			}
		})
	}
}

func TestInstruccionesIgnoradas(t *testing.T) {
	prog := []uint32{
		0x44000000,               // cop1
		insI(opPref, 0, 0, 0),    // pref
		insR(fnSync, 0, 0, 0, 0), // sync
		insI(opLwc1, 0, 1, 0),    // lwc1
		insI(opAddiu, 0, 2, 3),
		insBreak(),
	}
	for nombre, m := range correrEn(t, prog, nil) {
		assert.Equal(t, uint32(3), m.Regs[2], nombre)
	}
}

func TestInstruccionDesconocidaDetiene(t *testing.T) {
	for _, jit := range []bool{false, true} {
		m := nuevoMotorPrueba(jit).NuevaMaquina()
		cargarPrograma(m, baseCodigo, []uint32{insI(0x3F, 0, 0, 0), insBreak()})
		m.Run()

		assert.True(t, m.Detenida())
		assert.ErrorIs(t, m.Falla(), ErrInstruccionNoSoportada)
	}
}

func TestLlSc(t *testing.T) {
	prog := []uint32{
		insI(opLl, 4, 8, 0),
		insI(opAddiu, 8, 8, 1),
		insI(opSc, 4, 8, 0),
		insBreak(),
	}
	for nombre, m := range correrEn(t, prog, func(m *Maquina) {
		m.Regs[4] = 0x3000
		m.Mem.Set(0x3000, 41)
	}) {
		assert.Equal(t, uint32(42), m.Mem.Get(0x3000), nombre)
		assert.Equal(t, uint32(1), m.Regs[8], nombre)
	}
}
