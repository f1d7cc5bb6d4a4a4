package internal

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fs"
	"github.com/sisoputnfrba/mips-golang/utils/log"
	"github.com/stretchr/testify/require"
)

const (
	opBne   = 0x05
	opAddiu = 0x09
	opOri   = 0x0d
	opLui   = 0x0f
	opLw    = 0x23
	opSw    = 0x2b

	insSyscall = 0x0c
	insBreak   = 0x0d
	insNop     = 0

	baseTexto = 0x00400000
	// zona de datos para los tests
	datos = 0x10000000
)

func insI(op, rs, rt uint32, imm int32) uint32 {
	return op<<26 | rs<<21 | rt<<16 | uint32(imm)&0xFFFF
}

// sys carga num en $2 y ejecuta syscall.
func sys(num int32) []uint32 {
	return []uint32{insI(opAddiu, 0, 2, num), insSyscall}
}

func concat(partes ...[]uint32) []uint32 {
	var todo []uint32
	for _, p := range partes {
		todo = append(todo, p...)
	}
	return todo
}

type opcionesELF struct {
	tipo         elf.Type
	codigo       []uint32
	interprete   string
	gp           uint32
	bss          uint32
	precompilado string
}

// construirELF arma un ELF32 big-endian de MIPS con un único PT_LOAD que cubre todo el archivo.
// ET_EXEC se enlaza en baseTexto y ET_DYN en 0.
func construirELF(t *testing.T, o opcionesELF) []byte {
	t.Helper()
	be := binary.BigEndian
	if o.tipo == 0 {
		o.tipo = elf.ET_EXEC
	}
	vaddr := uint32(baseTexto)
	if o.tipo == elf.ET_DYN {
		vaddr = 0
	}

	nph := 1
	if o.interprete != "" {
		nph++
	}
	if o.gp != 0 {
		nph++
	}
	off := uint32(52 + 32*nph)

	var cuerpo bytes.Buffer
	var phs [][8]uint32
	if o.interprete != "" {
		largo := uint32(len(o.interprete) + 1)
		phs = append(phs, [8]uint32{uint32(elf.PT_INTERP), off, vaddr + off, vaddr + off, largo, largo, 4, 1})
		cuerpo.WriteString(o.interprete)
		cuerpo.WriteByte(0)
		for cuerpo.Len()%4 != 0 {
			cuerpo.WriteByte(0)
		}
	}
	if o.gp != 0 {
		ri := off + uint32(cuerpo.Len())
		phs = append(phs, [8]uint32{uint32(elf.PT_MIPS_REGINFO), ri, vaddr + ri, vaddr + ri, 24, 24, 4, 4})
		regs := [6]uint32{0, 0, 0, 0, 0, o.gp}
		require.NoError(t, binary.Write(&cuerpo, be, regs))
	}
	codigoOff := off + uint32(cuerpo.Len())
	require.NoError(t, binary.Write(&cuerpo, be, o.codigo))
	fin := off + uint32(cuerpo.Len())
	phs = append([][8]uint32{{uint32(elf.PT_LOAD), 0, vaddr, vaddr, fin, fin + o.bss, 7, 0x1000}}, phs...)

	// secciones: nula, la del precompilado y .shstrtab
	var shoff, shnum, shstrndx uint32
	var secciones bytes.Buffer
	if o.precompilado != "" {
		nombres := "\x00" + SeccionPrecompilado + "\x00.shstrtab\x00"
		precOff := fin
		secciones.WriteString(o.precompilado + "\x00")
		strOff := fin + uint32(secciones.Len())
		secciones.WriteString(nombres)
		for secciones.Len()%4 != 0 {
			secciones.WriteByte(0)
		}
		shoff = fin + uint32(secciones.Len())
		shdrs := [3][10]uint32{
			{},
			{1, uint32(elf.SHT_PROGBITS), 0, 0, precOff, uint32(len(o.precompilado) + 1), 0, 0, 1, 0},
			{uint32(len(SeccionPrecompilado) + 2), uint32(elf.SHT_STRTAB), 0, 0, strOff, uint32(len(nombres)), 0, 0, 1, 0},
		}
		require.NoError(t, binary.Write(&secciones, be, shdrs))
		shnum, shstrndx = 3, 2
	}

	var f bytes.Buffer
	f.Write([]byte{0x7f, 'E', 'L', 'F', 1, 2, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	cabecera := []any{
		uint16(o.tipo), uint16(elf.EM_MIPS), uint32(1),
		vaddr + codigoOff, uint32(52), shoff, uint32(0),
		uint16(52), uint16(32), uint16(len(phs)), uint16(40), uint16(shnum), uint16(shstrndx),
	}
	for _, c := range cabecera {
		require.NoError(t, binary.Write(&f, be, c))
	}
	require.NoError(t, binary.Write(&f, be, phs))
	f.Write(cuerpo.Bytes())
	f.Write(secciones.Bytes())
	return f.Bytes()
}

type despachadorFalso struct {
	cola chan func()
}

func (d *despachadorFalso) Despertar(f func()) {
	d.cola <- f
}

func (d *despachadorFalso) correrUno(t *testing.T) {
	t.Helper()
	select {
	case f := <-d.cola:
		f()
	case <-time.After(5 * time.Second):
		t.Fatal("nadie despertó al planificador")
	}
}

type entorno struct {
	k       *Kernel
	fs      *fs.MemFS
	consola *fs.Consola
	salida  *bytes.Buffer
	desp    *despachadorFalso
}

func nuevoEntorno(t *testing.T) *entorno {
	return nuevoEntornoCon(t, false, nil)
}

// nuevoEntornoCon arma un kernel sin planificador: las máquinas desbloqueadas corren en el acto.
// envolver permite poner otro sistema de archivos delante del MemFS.
func nuevoEntornoCon(t *testing.T, jit bool, envolver func(*fs.MemFS, *despachadorFalso) fs.Sistema) *entorno {
	t.Helper()
	logger := log.NewLogger(io.Discard, "error")
	cfg := cpu.ConfigPorDefecto()
	cfg.JIT = jit
	mo := cpu.NuevoMotor(cfg, logger)

	e := &entorno{
		fs:     fs.NuevoMemFS(),
		salida: &bytes.Buffer{},
		desp:   &despachadorFalso{cola: make(chan func(), 8)},
	}
	e.consola = fs.NuevaConsola(e.salida)
	require.NoError(t, e.fs.Dispositivo(RutaConsola, func() fs.Stream { return e.consola }))

	var sistema fs.Sistema = e.fs
	if envolver != nil {
		sistema = envolver(e.fs, e.desp)
	}
	e.k = NewKernel(mo, sistema, e.desp, logger)
	return e
}

func (e *entorno) proceso() *Proceso {
	m := e.k.Motor.NuevaMaquina()
	m.Regs[29] = 0x7FFF0000
	return e.k.procesos[m.ID()]
}

func (e *entorno) instalar(t *testing.T, ruta string, o opcionesELF) {
	t.Helper()
	require.NoError(t, e.fs.EscribirArchivo(ruta, construirELF(t, o), 0o755))
}

// llamar ejecuta la syscall num como si la hubiera pedido p; los argumentos van a $4 en adelante.
func llamar(t *testing.T, p *Proceso, num uint32, args ...uint32) cpu.Resultado {
	t.Helper()
	f, ok := p.Maquina.Motor().Syscall(num)
	require.True(t, ok, "syscall %d sin registrar", num)
	for i, a := range args {
		p.Maquina.Regs[4+i] = a
	}
	return f(p.Maquina, p.Maquina.Regs[4], p.Maquina.Regs[5], p.Maquina.Regs[6])
}

// valor exige que la syscall haya terminado y devuelve su resultado.
func valor(t *testing.T, r cpu.Resultado) int32 {
	t.Helper()
	_, bloqueada := r.Bloqueado()
	require.False(t, bloqueada, "la syscall se bloqueó")
	return r.Valor()
}

func bloqueo(t *testing.T, r cpu.Resultado) *cpu.Bloqueo {
	t.Helper()
	b, bloqueada := r.Bloqueado()
	require.True(t, bloqueada, "la syscall no se bloqueó (devolvió %d)", r.Valor())
	return b
}

// cadena escribe s en addr y devuelve addr.
func cadena(p *Proceso, addr uint32, s string) uint32 {
	p.Maquina.Mem.Setstr(addr, s)
	return addr
}

func neg(e fs.Errno) int32 {
	return e.Negativo()
}
