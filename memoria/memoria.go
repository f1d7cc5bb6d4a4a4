// Package memoria implementa la memoria virtual paginada de cada máquina: páginas de 4 KiB creadas
// a demanda, compartidas copy-on-write entre procesos forkeados.
package memoria

import (
	"sort"
	"strings"
)

const (
	BitsPagina        = 12
	TamPagina         = 1 << BitsPagina
	PalabrasPorPagina = TamPagina / 4

	// límite de seguridad para cadenas sin NUL
	maxCadena = 1 << 20
)

// Pagina guarda 1024 palabras en el orden big-endian de la máquina invitada.
type Pagina struct {
	Palabras [PalabrasPorPagina]uint32
	rw       bool
	gen      uint32
}

func nuevaPagina() *Pagina {
	return &Pagina{rw: true}
}

// Escribible es false mientras la página esté compartida con otro espacio de direcciones.
func (p *Pagina) Escribible() bool {
	return p.rw
}

// Generacion cambia con cada escritura; el recompilador la usa para detectar código modificado.
func (p *Pagina) Generacion() uint32 {
	return p.gen
}

// VMem es el espacio de direcciones de 32 bits de una máquina.
type VMem struct {
	paginas   map[uint32]*Pagina
	ultimoNum uint32
	ultima    *Pagina
}

func New() *VMem {
	return &VMem{paginas: make(map[uint32]*Pagina)}
}

// Pagina devuelve la página que contiene addr sin crearla; nil si nunca se escribió.
func (v *VMem) Pagina(addr uint32) *Pagina {
	return v.buscar(addr >> BitsPagina)
}

// CantidadPaginas cuenta las páginas presentes.
func (v *VMem) CantidadPaginas() int {
	return len(v.paginas)
}

// Bases devuelve en orden la dirección de comienzo de cada página presente.
func (v *VMem) Bases() []uint32 {
	bases := make([]uint32, 0, len(v.paginas))
	for num := range v.paginas {
		bases = append(bases, num<<BitsPagina)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })
	return bases
}

func (v *VMem) buscar(num uint32) *Pagina {
	if v.ultima != nil && v.ultimoNum == num {
		return v.ultima
	}
	p := v.paginas[num]
	if p != nil {
		v.ultimoNum, v.ultima = num, p
	}
	return p
}

// paraEscribir resuelve la página de num para una escritura: la crea en cero si falta y la copia si es compartida.
func (v *VMem) paraEscribir(num uint32) *Pagina {
	p := v.buscar(num)
	switch {
	case p == nil:
		p = nuevaPagina()
		v.paginas[num] = p
	case !p.rw:
		copia := *p
		copia.rw = true
		p = &copia
		v.paginas[num] = p
	}
	v.ultimoNum, v.ultima = num, p
	p.gen++
	return p
}

func (v *VMem) invalidarCache() {
	v.ultima = nil
}

func indice(addr uint32) uint32 {
	return (addr & (TamPagina - 1)) >> 2
}

// Get lee la palabra alineada que contiene addr. Las páginas ausentes leen cero.
func (v *VMem) Get(addr uint32) uint32 {
	p := v.buscar(addr >> BitsPagina)
	if p == nil {
		return 0
	}
	return p.Palabras[indice(addr)]
}

func (v *VMem) Geth(addr uint32) uint16 {
	return uint16(v.Get(addr) >> ((2 - (addr & 2)) * 8))
}

func (v *VMem) Getb(addr uint32) uint8 {
	return uint8(v.Get(addr) >> ((3 - (addr & 3)) * 8))
}

// Getd lee 64 bits big-endian (palabra alta primero).
func (v *VMem) Getd(addr uint32) uint64 {
	return uint64(v.Get(addr))<<32 | uint64(v.Get(addr+4))
}

func (v *VMem) Set(addr, val uint32) {
	p := v.paraEscribir(addr >> BitsPagina)
	p.Palabras[indice(addr)] = val
}

func (v *VMem) Seth(addr uint32, val uint16) {
	p := v.paraEscribir(addr >> BitsPagina)
	sh := (2 - (addr & 2)) * 8
	i := indice(addr)
	p.Palabras[i] = p.Palabras[i]&^(0xFFFF<<sh) | uint32(val)<<sh
}

func (v *VMem) Setb(addr uint32, val uint8) {
	p := v.paraEscribir(addr >> BitsPagina)
	sh := (3 - (addr & 3)) * 8
	i := indice(addr)
	p.Palabras[i] = p.Palabras[i]&^(0xFF<<sh) | uint32(val)<<sh
}

func (v *VMem) Setd(addr uint32, val uint64) {
	v.Set(addr, uint32(val>>32))
	v.Set(addr+4, uint32(val))
}

// Getstr lee una cadena terminada en NUL.
func (v *VMem) Getstr(addr uint32) string {
	return v.Getstrn(addr, maxCadena)
}

// Getstrn lee hasta n bytes o hasta el primer NUL.
func (v *VMem) Getstrn(addr uint32, n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		c := v.Getb(addr + uint32(i))
		if c == 0 {
			break
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// Setstr escribe s seguida de un NUL.
func (v *VMem) Setstr(addr uint32, s string) {
	v.Escribir(addr, []byte(s))
	v.Setb(addr+uint32(len(s)), 0)
}

// Leer copia n bytes desde addr.
func (v *VMem) Leer(addr uint32, n int) []byte {
	buf := make([]byte, n)
	i := 0
	for ; i < n && (addr+uint32(i))&3 != 0; i++ {
		buf[i] = v.Getb(addr + uint32(i))
	}
	for ; i+4 <= n; i += 4 {
		w := v.Get(addr + uint32(i))
		buf[i], buf[i+1], buf[i+2], buf[i+3] = byte(w>>24), byte(w>>16), byte(w>>8), byte(w)
	}
	for ; i < n; i++ {
		buf[i] = v.Getb(addr + uint32(i))
	}
	return buf
}

// Escribir copia datos a partir de addr; las palabras completas se escriben de a una.
func (v *VMem) Escribir(addr uint32, datos []byte) {
	n := len(datos)
	i := 0
	for ; i < n && (addr+uint32(i))&3 != 0; i++ {
		v.Setb(addr+uint32(i), datos[i])
	}
	for ; i+4 <= n; i += 4 {
		v.Set(addr+uint32(i), uint32(datos[i])<<24|uint32(datos[i+1])<<16|uint32(datos[i+2])<<8|uint32(datos[i+3]))
	}
	for ; i < n; i++ {
		v.Setb(addr+uint32(i), datos[i])
	}
}

// Fork devuelve un espacio de direcciones que comparte todas las páginas con v.
// Ambos quedan en solo lectura y el primero que escriba se queda con una copia privada.
func (v *VMem) Fork() *VMem {
	hijo := &VMem{paginas: make(map[uint32]*Pagina, len(v.paginas))}
	for num, p := range v.paginas {
		p.rw = false
		hijo.paginas[num] = p
	}
	return hijo
}
