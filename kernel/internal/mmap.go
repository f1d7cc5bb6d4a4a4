package internal

import (
	"errors"
	"io"

	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fs"
	"github.com/sisoputnfrba/mips-golang/memoria"
)

func (k *Kernel) registrarMemoria() {
	mo := k.Motor
	mo.RegistrarSyscall(NrBrk, "brk", sysBrk)
	mo.RegistrarSyscall(NrMmap2, "mmap2", k.sysMmap2)
	mo.RegistrarSyscall(NrMunmap, "munmap", sysMunmap)
}

// sysBrk solo hace crecer el cursor; pedir menos (o 0) devuelve el actual.
func sysBrk(m *cpu.Maquina, nuevo, _, _ uint32) cpu.Resultado {
	if nuevo > m.DataEnd {
		m.DataEnd = nuevo
	}
	return cpu.Hecho(int32(m.DataEnd))
}

func paginasPara(largo uint32) uint32 {
	return uint32((uint64(largo) + memoria.TamPagina - 1) >> memoria.BitsPagina)
}

// sysMmap2 mapea memoria anónima o el contenido de un archivo. flags viene en $7; fd y el offset
// (en páginas) en la pila.
func (k *Kernel) sysMmap2(m *cpu.Maquina, addr, largo, _ uint32) cpu.Resultado {
	flags := m.Regs[7]
	n := argPila(m, 0)
	offsetPaginas := argPila(m, 1)

	paginas := paginasPara(largo)
	if paginas == 0 {
		return errno(fs.EINVAL)
	}
	if flags&mapFixed != 0 && addr&(memoria.TamPagina-1) != 0 {
		return errno(fs.EINVAL)
	}
	if paginas > memoria.LimitePaginasMmap-memoria.PrimeraPaginaMmap {
		return errno(fs.ENOMEM)
	}
	if flags&mapFixed != 0 && addr>>memoria.BitsPagina+paginas > memoria.LimitePaginasMmap {
		return errno(fs.EINVAL)
	}

	// el archivo se lee antes de mapear: si hay que esperar no queda nada a medias
	var contenido []byte
	if flags&mapAnonymous == 0 {
		_, d, ok := k.descriptor(m, n)
		if !ok || !d.Legible() {
			return errno(fs.EBADF)
		}
		st, err := d.Stream().Stat()
		if err != nil {
			return k.fallo(err)
		}
		desde := int64(offsetPaginas) << memoria.BitsPagina
		contenido = make([]byte, max(0, min(int64(largo), st.Tamanio-desde)))
		leidos, err := d.Stream().Read(contenido, desde)
		if err != nil && !errors.Is(err, io.EOF) {
			return k.falloDesc(d, err)
		}
		contenido = contenido[:leidos]
	}

	var base uint32
	if flags&mapFixed != 0 {
		base = addr
		m.Mem.MmapEn(base, paginas)
	} else {
		var err error
		if base, err = m.Mem.Mmap(paginas); err != nil {
			return errno(fs.ENOMEM)
		}
	}
	m.Mem.Escribir(base, contenido)
	return cpu.Hecho(int32(base))
}

func sysMunmap(m *cpu.Maquina, base, largo, _ uint32) cpu.Resultado {
	if base&(memoria.TamPagina-1) != 0 {
		return errno(fs.EINVAL)
	}
	m.Mem.Munmap(base, paginasPara(largo))
	return cpu.Hecho(0)
}
