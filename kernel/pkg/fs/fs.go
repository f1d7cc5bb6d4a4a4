// Package fs define lo que el kernel espera de un sistema de archivos y trae una implementación en memoria
// con dispositivos, consola y pipes.
package fs

import (
	"sync"
	"sync/atomic"
	"time"
)

// Flags de open(2) con la numeración de MIPS.
const (
	ORdonly    = 0x0
	OWronly    = 0x1
	ORdwr      = 0x2
	OAccmode   = 0x3
	OAppend    = 0x8
	ONonblock  = 0x80
	OCreat     = 0x100
	OTrunc     = 0x200
	OExcl      = 0x400
	ONoctty    = 0x800
	OLargefile = 0x2000
	ODirectory = 0x10000
	ONofollow  = 0x20000
	OCloexec   = 0x80000
)

// TamMaximoArchivo acota el tamaño de un archivo en memoria y las posiciones de seek.
const TamMaximoArchivo = 1 << 28

// Bits de tipo de st_mode.
const (
	SIfmt  = 0o170000
	SIfifo = 0o010000
	SIfchr = 0o020000
	SIfdir = 0o040000
	SIfreg = 0o100000
	SIflnk = 0o120000
)

// Tipos de d_type para getdents64.
const (
	DTUnknown = 0
	DTFifo    = 1
	DTChr     = 2
	DTDir     = 4
	DTReg     = 8
	DTLnk     = 10
)

// Stat es la información de un archivo, independiente del layout de stat64.
type Stat struct {
	Dev     uint64
	Ino     uint64
	Modo    uint32
	Nlink   uint32
	UID     uint32
	GID     uint32
	Rdev    uint64
	Tamanio int64
	Blksize uint32
	Bloques int64
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
}

func (s Stat) EsDirectorio() bool { return s.Modo&SIfmt == SIfdir }
func (s Stat) EsLink() bool       { return s.Modo&SIfmt == SIflnk }

// Posicionable indica si el stream tiene offset propio (archivo o directorio) o es secuencial (pipe, tty).
func (s Stat) Posicionable() bool {
	switch s.Modo & SIfmt {
	case SIfreg, SIfdir, SIflnk:
		return true
	}
	return false
}

// Dirent es una entrada de directorio.
type Dirent struct {
	Nombre string
	Ino    uint64
	Tipo   uint8
}

// TipoDirent traduce los bits de tipo de un modo al d_type correspondiente.
func TipoDirent(modo uint32) uint8 {
	switch modo & SIfmt {
	case SIfifo:
		return DTFifo
	case SIfchr:
		return DTChr
	case SIfdir:
		return DTDir
	case SIfreg:
		return DTReg
	case SIflnk:
		return DTLnk
	}
	return DTUnknown
}

// Stream es un archivo abierto. pos es el offset de la operación; los streams secuenciales lo ignoran.
// Los errores son Errno o *Pendiente.
type Stream interface {
	Read(buf []byte, pos int64) (int, error)
	Write(buf []byte, pos int64) (int, error)
	Stat() (Stat, error)
	Close() error
}

// Directorio es un Stream que además lista entradas.
type Directorio interface {
	Stream
	Entradas() ([]Dirent, error)
}

// Sistema resuelve rutas absolutas. Las relativas las arma el kernel con el cwd del proceso.
type Sistema interface {
	Open(ruta string, flags int, modo uint32) (Stream, error)
	Stat(ruta string) (Stat, error)
	Lstat(ruta string) (Stat, error)
	Mkdir(ruta string, modo uint32) error
	Symlink(destino, ruta string) error
	Unlink(ruta string) error
	Readlink(ruta string) (string, error)
	Readdir(ruta string) ([]Dirent, error)
}

// Pendiente es el error de una operación que todavía no puede terminar (lectura sin datos, descarga en curso).
// Quien la recibe registra con AlCompletar qué hacer cuando se pueda reintentar.
type Pendiente struct {
	mu      sync.Mutex
	listo   bool
	esperas []func()
}

func NuevaPendiente() *Pendiente {
	return &Pendiente{}
}

func (p *Pendiente) Error() string {
	return "operación pendiente"
}

// AlCompletar registra f. Si ya se completó, f corre en el acto.
func (p *Pendiente) AlCompletar(f func()) {
	p.mu.Lock()
	if p.listo {
		p.mu.Unlock()
		f()
		return
	}
	p.esperas = append(p.esperas, f)
	p.mu.Unlock()
}

// Completar corre las esperas en la goroutine que llama. Completar dos veces no hace nada.
func (p *Pendiente) Completar() {
	p.mu.Lock()
	if p.listo {
		p.mu.Unlock()
		return
	}
	p.listo = true
	esperas := p.esperas
	p.esperas = nil
	p.mu.Unlock()

	for _, f := range esperas {
		f()
	}
}

func (p *Pendiente) Completada() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listo
}

var ultimoIno atomic.Uint64

func nuevoIno() uint64 {
	return ultimoIno.Add(1)
}
