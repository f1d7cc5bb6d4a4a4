package cpu

import (
	"math/bits"

	"github.com/sisoputnfrba/mips-golang/cpu/internal/aritmetica"
	"github.com/sisoputnfrba/mips-golang/memoria"
)

// Códigos de operación (bits 31..26).
const (
	opEspecial  = 0x00
	opRegimm    = 0x01
	opJ         = 0x02
	opJal       = 0x03
	opBeq       = 0x04
	opBne       = 0x05
	opBlez      = 0x06
	opBgtz      = 0x07
	opAddi      = 0x08
	opAddiu     = 0x09
	opSlti      = 0x0A
	opSltiu     = 0x0B
	opAndi      = 0x0C
	opOri       = 0x0D
	opXori      = 0x0E
	opLui       = 0x0F
	opEspecial2 = 0x1C
	opEspecial3 = 0x1F
	opLb        = 0x20
	opLh        = 0x21
	opLwl       = 0x22
	opLw        = 0x23
	opLbu       = 0x24
	opLhu       = 0x25
	opLwr       = 0x26
	opSb        = 0x28
	opSh        = 0x29
	opSwl       = 0x2A
	opSw        = 0x2B
	opSwr       = 0x2E
	opCache     = 0x2F
	opLl        = 0x30
	opLwc1      = 0x31
	opPref      = 0x33
	opLdc1      = 0x35
	opSc        = 0x38
	opSwc1      = 0x39
	opSdc1      = 0x3D
)

// Funciones de las instrucciones tipo R (bits 5..0).
const (
	fnSll       = 0x00
	fnSrl       = 0x02
	fnSra       = 0x03
	fnSllv      = 0x04
	fnReservado = 0x05
	fnSrlv      = 0x06
	fnSrav      = 0x07
	fnJr        = 0x08
	fnJalr      = 0x09
	fnMovz      = 0x0A
	fnMovn      = 0x0B
	fnSyscall   = 0x0C
	fnBreak     = 0x0D
	fnSync      = 0x0F
	fnMfhi      = 0x10
	fnMthi      = 0x11
	fnMflo      = 0x12
	fnMtlo      = 0x13
	fnMult      = 0x18
	fnMultu     = 0x19
	fnDiv       = 0x1A
	fnDivu      = 0x1B
	fnAdd       = 0x20
	fnAddu      = 0x21
	fnSub       = 0x22
	fnSubu      = 0x23
	fnAnd       = 0x24
	fnOr        = 0x25
	fnXor       = 0x26
	fnNor       = 0x27
	fnSlt       = 0x2A
	fnSltu      = 0x2B
)

// SPECIAL2 y SPECIAL3 (MIPS32r2).
const (
	fn2Mul   = 0x02
	fn2Clz   = 0x20
	fn2Clo   = 0x21
	fn3Ext   = 0x00
	fn3Ins   = 0x04
	fn3Bshfl = 0x20
	fn3Rdhwr = 0x3B

	bshflWsbh = 0x02
	bshflSeb  = 0x10
	bshflSeh  = 0x18

	// registro de hardware que lee rdhwr para el puntero de TLS
	hwrULR = 29
)

func campos(op uint32) (rs, rt, rd, sa, fn uint32) {
	return op >> 21 & 31, op >> 16 & 31, op >> 11 & 31, op >> 6 & 31, op & 63
}

// sext extiende el signo de un inmediato de 16 bits.
func sext(imm uint32) uint32 {
	return uint32(int32(int16(uint16(imm))))
}

// destinoSalto calcula el destino de un branch relativo ubicado en opc.
func destinoSalto(opc, imm uint32) uint32 {
	return opc + 4 + sext(imm)<<2
}

// destinoJ calcula el destino de j/jal: región de 256 MiB del delay slot.
func destinoJ(opc, op uint32) uint32 {
	return (opc+4)&0xF0000000 | (op&0x03FFFFFF)<<2
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// tablaR tiene las operaciones tipo R que solo escriben rd a partir de rs, rt y sa.
var tablaR = [64]func(a, b, sa uint32) uint32{
	fnSll:  func(_, b, sa uint32) uint32 { return b << sa },
	fnSrl:  func(_, b, sa uint32) uint32 { return b >> sa },
	fnSra:  func(_, b, sa uint32) uint32 { return uint32(int32(b) >> sa) },
	fnSllv: func(a, b, _ uint32) uint32 { return b << (a & 31) },
	fnSrlv: func(a, b, _ uint32) uint32 { return b >> (a & 31) },
	fnSrav: func(a, b, _ uint32) uint32 { return uint32(int32(b) >> (a & 31)) },
	fnAdd:  func(a, b, _ uint32) uint32 { return a + b },
	fnAddu: func(a, b, _ uint32) uint32 { return a + b },
	fnSub:  func(a, b, _ uint32) uint32 { return a - b },
	fnSubu: func(a, b, _ uint32) uint32 { return a - b },
	fnAnd:  func(a, b, _ uint32) uint32 { return a & b },
	fnOr:   func(a, b, _ uint32) uint32 { return a | b },
	fnXor:  func(a, b, _ uint32) uint32 { return a ^ b },
	fnNor:  func(a, b, _ uint32) uint32 { return ^(a | b) },
	fnSlt:  func(a, b, _ uint32) uint32 { return b2u(int32(a) < int32(b)) },
	fnSltu: func(a, b, _ uint32) uint32 { return b2u(a < b) },
}

// tablaI tiene las operaciones con inmediato que escriben rt. imm llega sin extender.
var tablaI = [64]func(a, imm uint32) uint32{
	opAddi:  func(a, imm uint32) uint32 { return a + sext(imm) },
	opAddiu: func(a, imm uint32) uint32 { return a + sext(imm) },
	opSlti:  func(a, imm uint32) uint32 { return b2u(int32(a) < int32(sext(imm))) },
	opSltiu: func(a, imm uint32) uint32 { return b2u(a < sext(imm)) },
	opAndi:  func(a, imm uint32) uint32 { return a & imm },
	opOri:   func(a, imm uint32) uint32 { return a | imm },
	opXori:  func(a, imm uint32) uint32 { return a ^ imm },
	opLui:   func(_, imm uint32) uint32 { return imm << 16 },
}

// tablaE2 son las operaciones SPECIAL2 que escriben rd.
var tablaE2 = [64]func(a, b uint32) uint32{
	fn2Mul: func(a, b uint32) uint32 { return a * b },
	fn2Clz: func(a, _ uint32) uint32 { return uint32(bits.LeadingZeros32(a)) },
	fn2Clo: func(a, _ uint32) uint32 { return uint32(bits.LeadingZeros32(^a)) },
}

func esCarga(codigo uint32) bool {
	switch codigo {
	case opLb, opLh, opLwl, opLw, opLbu, opLhu, opLwr, opLl:
		return true
	}
	return false
}

func esAlmacenamiento(codigo uint32) bool {
	switch codigo {
	case opSb, opSh, opSwl, opSw, opSwr, opSc:
		return true
	}
	return false
}

// esIgnorada cubre FPU y pistas de caché, que no tienen efecto en este simulador.
func esIgnorada(codigo uint32) bool {
	if codigo&0x3C == 0x10 {
		return true
	}
	switch codigo {
	case opLwc1, opSwc1, opLdc1, opSdc1, opPref, opCache:
		return true
	}
	return false
}

const todos = uint32(0xFFFFFFFF)

// cargar devuelve el nuevo valor de rt para una carga en addr. viejo es el valor previo de rt (lwl/lwr).
func cargar(mem *memoria.VMem, codigo, addr, viejo uint32) uint32 {
	switch codigo {
	case opLb:
		return uint32(int32(int8(mem.Getb(addr))))
	case opLh:
		return uint32(int32(int16(mem.Geth(addr))))
	case opLbu:
		return uint32(mem.Getb(addr))
	case opLhu:
		return uint32(mem.Geth(addr))
	case opLwl:
		s := addr & 3
		return mem.Get(addr)<<(s*8) | viejo&(todos>>((4-s)*8))
	case opLwr:
		s := addr & 3
		return mem.Get(addr)>>((3-s)*8) | viejo&(todos<<((s+1)*8))
	default: // lw, ll
		return mem.Get(addr)
	}
}

// almacenar escribe rt en addr según el ancho de la instrucción.
func almacenar(mem *memoria.VMem, codigo, addr, v uint32) {
	switch codigo {
	case opSb:
		mem.Setb(addr, uint8(v))
	case opSh:
		mem.Seth(addr, uint16(v))
	case opSwl:
		s := addr & 3
		mem.Set(addr, mem.Get(addr)&(todos<<((4-s)*8))|v>>(s*8))
	case opSwr:
		s := addr & 3
		mem.Set(addr, mem.Get(addr)&(todos>>((s+1)*8))|v<<((3-s)*8))
	default: // sw, sc
		mem.Set(addr, v)
	}
}

func (m *Maquina) multiplicar(fn, a, b uint32) {
	var p aritmetica.Par
	if fn == fnMult {
		p = aritmetica.Mul32Signed(a, b)
	} else {
		p = aritmetica.Mul32(a, b)
	}
	m.Hi, m.Lo = p[0], p[1]
}

// dividir deja cociente en lo y resto en hi. Dividir por cero deja ambos en cero.
func (m *Maquina) dividir(fn, a, b uint32) {
	if b == 0 {
		m.Hi, m.Lo = 0, 0
		return
	}
	if fn == fnDiv {
		x, y := int32(a), int32(b)
		m.Lo, m.Hi = uint32(x/y), uint32(x%y)
		return
	}
	m.Lo, m.Hi = a/b, a%b
}

// especial3Soportada indica si op es una de las SPECIAL3 que se implementan.
func especial3Soportada(op uint32) bool {
	_, _, rd, sa, fn := campos(op)
	switch fn {
	case fn3Ext, fn3Rdhwr:
		return true
	case fn3Ins:
		return rd >= sa
	case fn3Bshfl:
		return sa == bshflWsbh || sa == bshflSeb || sa == bshflSeh
	}
	return false
}

// especial3 ejecuta ext, ins, wsbh, seb, seh y rdhwr. Hay que chequear antes especial3Soportada.
func (m *Maquina) especial3(op uint32) {
	rs, rt, rd, sa, fn := campos(op)
	switch fn {
	case fn3Ext:
		mascara := uint32(uint64(1)<<(rd+1) - 1)
		m.Regs[rt] = m.Regs[rs] >> sa & mascara
	case fn3Ins:
		mascara := uint32(uint64(1)<<(rd-sa+1)-1) << sa
		m.Regs[rt] = m.Regs[rt]&^mascara | m.Regs[rs]<<sa&mascara
	case fn3Bshfl:
		x := m.Regs[rt]
		switch sa {
		case bshflWsbh:
			m.Regs[rd] = x&0x00FF00FF<<8 | x>>8&0x00FF00FF
		case bshflSeb:
			m.Regs[rd] = uint32(int32(int8(x)))
		case bshflSeh:
			m.Regs[rd] = uint32(int32(int16(x)))
		}
	case fn3Rdhwr:
		var v uint32
		if rd == hwrULR {
			v = m.TLS
		}
		m.Regs[rt] = v
	}
}
