package internal

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sisoputnfrba/mips-golang/memoria"
)

const (
	// BaseInterprete es donde se carga el intérprete de PT_INTERP.
	BaseInterprete = 0x30000000
	// TopePila es el tope del marco inicial de argc/argv/envp/auxv.
	TopePila = 0xC0000000
	// topeCadenas es desde donde se copian hacia abajo las cadenas de argv y envp.
	topeCadenas = 0xFFFFFFFC

	SeccionPrecompilado = ".mipsim_precompilado"
)

// Claves del vector auxiliar.
const (
	atNull   = 0
	atPhdr   = 3
	atPhent  = 4
	atPhnum  = 5
	atPagesz = 6
	atBase   = 7
	atEntry  = 9
	atUID    = 11
	atEUID   = 12
	atGID    = 13
	atEGID   = 14
)

var ErrELFInvalido = errors.New("ELF inválido")

// programa es un ELF ya validado, listo para cargar en un espacio de direcciones.
type programa struct {
	archivo    *elf.File
	datos      []byte
	interprete string
	// nombre de la rutina precompilada que pide el binario, si hay
	precompilado string
}

// imagen describe lo que quedó en memoria después de cargar un programa.
type imagen struct {
	entrada uint32
	phdr    uint32
	phnum   uint32
	fin     uint32
	gp      uint32
	tieneGP bool
}

// analizarELF valida el encabezado y lee PT_INTERP y la sección de código precompilado.
// No toca memoria, así un execve que falla deja intacto al proceso.
func analizarELF(datos []byte) (*programa, error) {
	f, err := elf.NewFile(bytes.NewReader(datos))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrELFInvalido, err)
	}
	if f.Class != elf.ELFCLASS32 || f.Data != elf.ELFDATA2MSB || f.Machine != elf.EM_MIPS {
		return nil, fmt.Errorf("%w: no es MIPS32 big-endian", ErrELFInvalido)
	}
	if f.Type != elf.ET_EXEC && f.Type != elf.ET_DYN {
		return nil, fmt.Errorf("%w: tipo %v", ErrELFInvalido, f.Type)
	}

	p := &programa{archivo: f, datos: datos}
	for _, ph := range f.Progs {
		if ph.Type != elf.PT_INTERP {
			continue
		}
		b, err := io.ReadAll(ph.Open())
		if err != nil {
			return nil, fmt.Errorf("%w: PT_INTERP: %w", ErrELFInvalido, err)
		}
		p.interprete = strings.TrimRight(string(b), "\x00")
	}
	if s := f.Section(SeccionPrecompilado); s != nil {
		b, err := s.Data()
		if err == nil {
			p.precompilado = strings.TrimSpace(strings.TrimRight(string(b), "\x00"))
		}
	}
	return p, nil
}

// cargar copia los PT_LOAD a sus direcciones más base. Los ejecutables ET_EXEC van a su dirección de enlace.
func (p *programa) cargar(mem *memoria.VMem, base uint32) (*imagen, error) {
	if p.archivo.Type == elf.ET_EXEC {
		base = 0
	}
	phoff := uint64(binary.BigEndian.Uint32(p.datos[28:32]))
	img := &imagen{
		entrada: base + uint32(p.archivo.Entry),
		phnum:   uint32(len(p.archivo.Progs)),
	}

	for _, ph := range p.archivo.Progs {
		switch ph.Type {
		case elf.PT_LOAD:
			seg := make([]byte, ph.Filesz)
			if _, err := io.ReadFull(ph.Open(), seg); err != nil {
				return nil, fmt.Errorf("%w: segmento en 0x%x: %w", ErrELFInvalido, ph.Vaddr, err)
			}
			mem.Escribir(base+uint32(ph.Vaddr), seg)
			if fin := base + uint32(ph.Vaddr+ph.Memsz); fin > img.fin {
				img.fin = fin
			}
			if ph.Off <= phoff && phoff < ph.Off+ph.Filesz {
				img.phdr = base + uint32(ph.Vaddr+phoff-ph.Off)
			}
		case elf.PT_MIPS_REGINFO:
			// ri_gp_value es la sexta palabra de Elf32_RegInfo
			ri := make([]byte, 24)
			if _, err := io.ReadFull(ph.Open(), ri); err == nil {
				img.gp = base + binary.BigEndian.Uint32(ri[20:24])
				img.tieneGP = true
			}
		}
	}
	return img, nil
}

// armarPila copia argv y envp al tope de la memoria y arma debajo de TopePila el marco que espera
// el arranque de libc: argc, argv, NULL, envp, NULL y los pares del vector auxiliar.
func armarPila(mem *memoria.VMem, args, env []string, aux [][2]uint32) uint32 {
	tope := uint32(topeCadenas)
	copiar := func(cs []string) []uint32 {
		ptrs := make([]uint32, len(cs))
		for i, c := range cs {
			tope -= uint32(len(c) + 1)
			mem.Setstr(tope, c)
			ptrs[i] = tope
		}
		return ptrs
	}
	argv := copiar(args)
	envp := copiar(env)

	marco := make([]uint32, 0, len(argv)+len(envp)+2*len(aux)+5)
	marco = append(marco, uint32(len(argv)))
	marco = append(marco, argv...)
	marco = append(marco, 0)
	marco = append(marco, envp...)
	marco = append(marco, 0)
	for _, par := range aux {
		marco = append(marco, par[0], par[1])
	}
	marco = append(marco, atNull, 0)

	sp := (TopePila - uint32(4*len(marco))) &^ 7
	for i, w := range marco {
		mem.Set(sp+uint32(4*i), w)
	}
	return sp
}
