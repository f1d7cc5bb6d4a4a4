// Package fd implementa la tabla de descriptores de un proceso sobre streams compartidos con conteo de referencias.
package fd

import (
	"sort"

	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fs"
)

// MaxDescriptores es el límite de descriptores abiertos por proceso.
const MaxDescriptores = 1024

// Archivo es un stream abierto compartido entre descriptores (dup, fork). Se cierra con la última referencia.
type Archivo struct {
	Stream fs.Stream
	refs   int
}

func (a *Archivo) Refs() int {
	return a.refs
}

func (a *Archivo) soltar() error {
	a.refs--
	if a.refs == 0 {
		return a.Stream.Close()
	}
	return nil
}

// Descriptor es una entrada de la tabla: el archivo compartido más el estado propio del descriptor.
type Descriptor struct {
	archivo     *Archivo
	Posicion    int64
	CloseOnExec bool
	Flags       int
}

func (d *Descriptor) Archivo() *Archivo {
	return d.archivo
}

func (d *Descriptor) Stream() fs.Stream {
	return d.archivo.Stream
}

// Legible indica si los flags de apertura permiten leer.
func (d *Descriptor) Legible() bool {
	return d.Flags&fs.OAccmode != fs.OWronly
}

func (d *Descriptor) Escribible() bool {
	return d.Flags&fs.OAccmode != fs.ORdonly
}

func (d *Descriptor) copia() *Descriptor {
	d.archivo.refs++
	c := *d
	return &c
}

type Tabla struct {
	descs map[int]*Descriptor
}

func NuevaTabla() *Tabla {
	return &Tabla{descs: make(map[int]*Descriptor)}
}

// Abrir registra un stream recién abierto en el descriptor libre más bajo.
func (t *Tabla) Abrir(s fs.Stream, flags int) (int, error) {
	d := &Descriptor{
		archivo:     &Archivo{Stream: s, refs: 1},
		Flags:       flags &^ fs.OCloexec,
		CloseOnExec: flags&fs.OCloexec != 0,
	}
	n, err := t.asignarDesde(0, d)
	if err != nil {
		_ = s.Close()
	}
	return n, err
}

func (t *Tabla) asignarDesde(minimo int, d *Descriptor) (int, error) {
	for n := minimo; n < MaxDescriptores; n++ {
		if _, ocupado := t.descs[n]; !ocupado {
			t.descs[n] = d
			return n, nil
		}
	}
	return -1, fs.EMFILE
}

func (t *Tabla) Obtener(n int) (*Descriptor, bool) {
	d, ok := t.descs[n]
	return d, ok
}

// Cerrar libera n. El error es el del Close del stream si era la última referencia.
func (t *Tabla) Cerrar(n int) error {
	d, ok := t.descs[n]
	if !ok {
		return fs.EBADF
	}
	delete(t.descs, n)
	return d.archivo.soltar()
}

// Dup copia n en el descriptor libre más bajo que sea >= minimo.
func (t *Tabla) Dup(n, minimo int, cloexec bool) (int, error) {
	d, ok := t.descs[n]
	if !ok {
		return -1, fs.EBADF
	}
	if minimo < 0 || minimo >= MaxDescriptores {
		return -1, fs.EINVAL
	}
	c := d.copia()
	c.CloseOnExec = cloexec
	nuevo, err := t.asignarDesde(minimo, c)
	if err != nil {
		_ = c.archivo.soltar()
	}
	return nuevo, err
}

// Dup2 hace que nuevo apunte al mismo archivo que viejo, cerrando antes lo que hubiera en nuevo.
func (t *Tabla) Dup2(viejo, nuevo int) (int, error) {
	d, ok := t.descs[viejo]
	if !ok || nuevo < 0 || nuevo >= MaxDescriptores {
		return -1, fs.EBADF
	}
	if viejo == nuevo {
		return nuevo, nil
	}
	if _, ocupado := t.descs[nuevo]; ocupado {
		_ = t.Cerrar(nuevo)
	}
	c := d.copia()
	c.CloseOnExec = false
	t.descs[nuevo] = c
	return nuevo, nil
}

// Clonar copia la tabla para un hijo de fork: mismos archivos, referencias sumadas.
func (t *Tabla) Clonar() *Tabla {
	c := NuevaTabla()
	for n, d := range t.descs {
		c.descs[n] = d.copia()
	}
	return c
}

// CerrarCloexec cierra los descriptores marcados close-on-exec.
func (t *Tabla) CerrarCloexec() {
	for _, n := range t.Numeros() {
		if t.descs[n].CloseOnExec {
			_ = t.Cerrar(n)
		}
	}
}

func (t *Tabla) CerrarTodo() {
	for _, n := range t.Numeros() {
		_ = t.Cerrar(n)
	}
}

func (t *Tabla) Len() int {
	return len(t.descs)
}

// Numeros devuelve los descriptores abiertos en orden.
func (t *Tabla) Numeros() []int {
	ns := make([]int, 0, len(t.descs))
	for n := range t.descs {
		ns = append(ns, n)
	}
	sort.Ints(ns)
	return ns
}
