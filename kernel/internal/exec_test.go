package internal

import (
	"debug/elf"
	"io"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fs"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/remotefs"
	"github.com/sisoputnfrba/mips-golang/memoria"
	"github.com/sisoputnfrba/mips-golang/utils/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// programaEco lee hasta 16 bytes de stdin a datos y sale con la cantidad leída.
func programaEco() []uint32 {
	return concat(
		[]uint32{
			insI(opAddiu, 0, 4, 0),
			insI(opLui, 0, 5, datos>>16),
			insI(opAddiu, 0, 6, 16),
		},
		sys(NrRead),
		[]uint32{insI(opAddiu, 2, 4, 0)},
		sys(NrExit),
	)
}

// programaSalir sale con codigo.
func programaSalir(codigo int32) []uint32 {
	return concat([]uint32{insI(opAddiu, 0, 4, codigo)}, sys(NrExit))
}

// auxv recorre el marco inicial desde sp y devuelve el vector auxiliar.
func auxv(mem *memoria.VMem, sp uint32) map[uint32]uint32 {
	argc := mem.Get(sp)
	ptr := sp + 4 + 4*(argc+1)
	for mem.Get(ptr) != 0 {
		ptr += 4
	}
	ptr += 4
	aux := map[uint32]uint32{}
	for ; mem.Get(ptr) != atNull; ptr += 8 {
		aux[mem.Get(ptr)] = mem.Get(ptr + 4)
	}
	return aux
}

func TestSpawn_PilaInicialYConsola(t *testing.T) {
	e := nuevoEntorno(t)
	e.instalar(t, "/bin/eco", opcionesELF{codigo: programaEco(), gp: 0x10008000, bss: 0x2000})

	p, err := e.k.Spawn("/bin/eco", []string{"eco", "hola"}, []string{"HOME=/"})
	require.NoError(t, err)
	m := p.Maquina
	mem := m.Mem
	ass := assert.New(t)

	ass.True(m.Bloqueada(), "espera entrada de la consola")
	ass.Equal([]int{0, 1, 2}, p.FDs.Numeros())
	ass.Equal("/bin/eco", p.Programa)
	ass.Equal(uint32(0x10008000), m.Regs[28])
	ass.Zero(m.DataEnd % memoria.TamPagina)
	ass.Greater(m.DataEnd, uint32(baseTexto+0x2000))

	sp := m.Regs[29]
	ass.Zero(sp % 8)
	ass.Equal(uint32(2), mem.Get(sp))
	ass.Equal("eco", mem.Getstr(mem.Get(sp+4)))
	ass.Equal("hola", mem.Getstr(mem.Get(sp+8)))
	ass.Equal(uint32(0), mem.Get(sp+12))
	ass.Equal("HOME=/", mem.Getstr(mem.Get(sp+16)))
	ass.Equal(uint32(0), mem.Get(sp+20))

	aux := auxv(mem, sp)
	ass.Equal(uint32(memoria.TamPagina), aux[atPagesz])
	ass.Equal(uint32(baseTexto+52), aux[atPhdr])
	ass.Equal(uint32(32), aux[atPhent])
	ass.Equal(uint32(2), aux[atPhnum])
	ass.Equal(uint32(0), aux[atBase])
	// el código va después de los encabezados de programa y de REGINFO
	ass.Equal(uint32(baseTexto+52+2*32+24), aux[atEntry])

	e.consola.Alimentar([]byte("hi\n"))
	ass.True(p.Terminado)
	ass.Equal(3, p.CodigoSalida)
	ass.Equal("hi\n", string(mem.Leer(datos, 3)))
}

func TestSpawn_Errores(t *testing.T) {
	e := nuevoEntorno(t)
	require.NoError(t, e.fs.EscribirArchivo("/bin/script", []byte("#!/bin/sh\necho hola\n"), 0o755))
	e.instalar(t, "/bin/dinamico", opcionesELF{codigo: programaSalir(0), interprete: "/lib/ld.so.1"})

	tests := []struct {
		name string
		ruta string
		want fs.Errno
	}{
		{name: "no existe", ruta: "/bin/nada", want: fs.ENOENT},
		{name: "no es ELF", ruta: "/bin/script", want: fs.ENOEXEC},
		{name: "directorio", ruta: "/bin", want: fs.EACCES},
		{name: "falta el intérprete", ruta: "/bin/dinamico", want: fs.ENOENT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.k.Spawn(tt.ruta, nil, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, e.k.Procesos(), "los procesos que no arrancaron no quedan")
}

func TestSpawn_ConInterprete(t *testing.T) {
	e := nuevoEntorno(t)
	e.instalar(t, "/lib/ld.so.1", opcionesELF{tipo: elf.ET_DYN, codigo: programaSalir(5), gp: 0x7ff0})
	e.instalar(t, "/bin/dinamico", opcionesELF{codigo: programaSalir(1), interprete: "/lib/ld.so.1"})

	p, err := e.k.Spawn("/bin/dinamico", nil, nil)
	require.NoError(t, err)

	ass := assert.New(t)
	ass.True(p.Terminado)
	ass.Equal(5, p.CodigoSalida, "arranca por el intérprete")
	ass.Equal([]string{"/bin/dinamico"}, p.Args)

	aux := auxv(p.Maquina.Mem, p.Maquina.Regs[29])
	ass.Equal(uint32(BaseInterprete), aux[atBase])
	ass.Less(aux[atEntry], uint32(BaseInterprete), "AT_ENTRY es el del programa")
	ass.Equal(uint32(2), aux[atPhnum])
}

func TestSpawn_Precompilado(t *testing.T) {
	e := nuevoEntornoCon(t, true, nil)
	llamadas := 0
	e.k.Motor.RegistrarPrecompilado("salir42", cpu.RutinaFunc(func(m *cpu.Maquina) bool {
		llamadas++
		m.Regs[2] = NrExit
		m.Regs[4] = 42
		return false
	}))
	e.instalar(t, "/bin/pre", opcionesELF{codigo: []uint32{insSyscall}, precompilado: "salir42"})

	p, err := e.k.Spawn("/bin/pre", nil, nil)
	require.NoError(t, err)
	assert.True(t, p.Terminado)
	assert.Equal(t, 42, p.CodigoSalida)
	assert.Equal(t, 1, llamadas)
}

func TestExecve(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.proceso()
	e.instalar(t, "/bin/nada", opcionesELF{codigo: []uint32{insBreak}})
	require.NoError(t, e.fs.EscribirArchivo("/bin/texto", []byte("hola"), 0o755))
	ass := assert.New(t)

	conCloexec := valor(t, llamar(t, p, NrOpen, cadena(p, datos, "/tmp/a"), fs.OWronly|fs.OCreat|fs.OCloexec, 0o644))
	comun := valor(t, llamar(t, p, NrOpen, cadena(p, datos, "/tmp/b"), fs.OWronly|fs.OCreat, 0o644))

	// un execve fallido deja todo como estaba
	ass.Equal(neg(fs.ENOEXEC), valor(t, llamar(t, p, NrExecve, cadena(p, datos, "/bin/texto"), 0, 0)))
	ass.Equal(2, p.FDs.Len())
	ass.Equal(neg(fs.ENOENT), valor(t, llamar(t, p, NrExecve, cadena(p, datos, "/bin/otro"), 0, 0)))

	// argv armado en la memoria del invitado
	mem := p.Maquina.Mem
	mem.Setstr(datos+0x100, "nada")
	mem.Setstr(datos+0x110, "-v")
	mem.Set(datos+0x200, datos+0x100)
	mem.Set(datos+0x204, datos+0x110)
	mem.Set(datos+0x208, 0)
	ass.Equal(int32(0), valor(t, llamar(t, p, NrExecve, cadena(p, datos, "/bin/nada"), datos+0x200, 0)))

	ass.Equal("/bin/nada", p.Programa)
	ass.Equal([]string{"nada", "-v"}, p.Args)
	_, ok := p.FDs.Obtener(int(conCloexec))
	ass.False(ok, "O_CLOEXEC se cierra en execve")
	_, ok = p.FDs.Obtener(int(comun))
	ass.True(ok)
	ass.Equal(uint32(0), p.Maquina.Mem.Get(datos+0x200), "la imagen vieja se descartó")
}

func TestSpawn_ProgramaRemoto(t *testing.T) {
	httpmock.Activate(t)
	defer httpmock.DeactivateAndReset()

	e := nuevoEntornoCon(t, false, func(base *fs.MemFS, d *despachadorFalso) fs.Sistema {
		r := remotefs.New(base, d.Despertar, log.NewLogger(io.Discard, "error"))
		r.Montar("/net/bin", "http://archivos.local/bin")
		return r
	})
	elfRemoto := construirELF(t, opcionesELF{codigo: programaSalir(9)})
	httpmock.RegisterResponder("GET", "http://archivos.local/bin/nueve",
		httpmock.NewBytesResponder(200, elfRemoto))

	p, err := e.k.Spawn("/net/bin/nueve", nil, nil)
	require.NoError(t, err)
	assert.True(t, p.Maquina.Bloqueada(), "espera la descarga")

	e.desp.correrUno(t)
	assert.True(t, p.Terminado)
	assert.Equal(t, 9, p.CodigoSalida)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}
