package fs

import (
	"errors"
	"path"
	"sort"
	"strings"
	"time"
)

const maxSaltosLink = 40

type nodo struct {
	modo    uint32
	ino     uint64
	padre   *nodo
	datos   []byte
	hijos   map[string]*nodo
	destino string
	abrir   func() Stream
	mtime   time.Time
}

func (n *nodo) esDir() bool  { return n.modo&SIfmt == SIfdir }
func (n *nodo) esLink() bool { return n.modo&SIfmt == SIflnk }

// MemFS es un árbol de archivos en memoria. No es seguro para uso concurrente: lo usa solo
// la goroutine del planificador.
type MemFS struct {
	raiz  *nodo
	ahora func() time.Time
}

// NuevoMemFS crea el árbol con /dev (null, zero) y /tmp.
func NuevoMemFS() *MemFS {
	f := &MemFS{ahora: time.Now}
	f.raiz = f.nuevoNodo(SIfdir|0o755, nil)
	f.raiz.padre = f.raiz

	_ = f.MkdirTodo("/tmp")
	_ = f.Dispositivo("/dev/null", func() Stream { return dispositivoNulo{} })
	_ = f.Dispositivo("/dev/zero", func() Stream { return dispositivoCero{} })
	return f
}

func (f *MemFS) nuevoNodo(modo uint32, padre *nodo) *nodo {
	n := &nodo{modo: modo, ino: nuevoIno(), padre: padre, mtime: f.ahora()}
	if n.esDir() {
		n.hijos = make(map[string]*nodo)
	}
	return n
}

// resolver camina ruta desde la raíz. seguirUltimo indica si un symlink en el último componente se sigue.
func (f *MemFS) resolver(ruta string, seguirUltimo bool) (*nodo, error) {
	if !strings.HasPrefix(ruta, "/") {
		return nil, ENOENT
	}
	actual := f.raiz
	pendientes := strings.Split(ruta, "/")
	saltos := 0

	for len(pendientes) > 0 {
		c := pendientes[0]
		pendientes = pendientes[1:]
		switch c {
		case "", ".":
			continue
		case "..":
			actual = actual.padre
			continue
		}
		if !actual.esDir() {
			return nil, ENOTDIR
		}
		hijo, ok := actual.hijos[c]
		if !ok {
			return nil, ENOENT
		}
		if hijo.esLink() && (seguirUltimo || quedanComponentes(pendientes)) {
			saltos++
			if saltos > maxSaltosLink {
				return nil, ELOOP
			}
			if strings.HasPrefix(hijo.destino, "/") {
				actual = f.raiz
			}
			pendientes = append(strings.Split(hijo.destino, "/"), pendientes...)
			continue
		}
		actual = hijo
	}
	return actual, nil
}

func quedanComponentes(cs []string) bool {
	for _, c := range cs {
		if c != "" && c != "." {
			return true
		}
	}
	return false
}

// padreDe devuelve el directorio que contiene ruta y el nombre del último componente.
func (f *MemFS) padreDe(ruta string) (*nodo, string, error) {
	ruta = path.Clean(ruta)
	if ruta == "/" {
		return nil, "", EEXIST
	}
	dir, err := f.resolver(path.Dir(ruta), true)
	if err != nil {
		return nil, "", err
	}
	if !dir.esDir() {
		return nil, "", ENOTDIR
	}
	return dir, path.Base(ruta), nil
}

func (f *MemFS) Open(ruta string, flags int, modo uint32) (Stream, error) {
	n, err := f.resolver(ruta, flags&ONofollow == 0)
	switch {
	case errors.Is(err, ENOENT) && flags&OCreat != 0:
		dir, nombre, errPadre := f.padreDe(ruta)
		if errPadre != nil {
			return nil, errPadre
		}
		if _, existe := dir.hijos[nombre]; existe {
			// symlink colgante
			return nil, ENOENT
		}
		n = f.nuevoNodo(SIfreg|modo&0o7777, dir)
		dir.hijos[nombre] = n
	case err != nil:
		return nil, err
	case flags&(OCreat|OExcl) == OCreat|OExcl:
		return nil, EEXIST
	}

	acceso := flags & OAccmode
	switch {
	case n.esLink():
		return nil, ELOOP
	case n.esDir():
		if acceso != ORdonly {
			return nil, EISDIR
		}
		return &streamDirectorio{fs: f, n: n}, nil
	case flags&ODirectory != 0:
		return nil, ENOTDIR
	case n.abrir != nil:
		return n.abrir(), nil
	}

	if flags&OTrunc != 0 && acceso != ORdonly {
		n.datos = n.datos[:0]
		n.mtime = f.ahora()
	}
	return &streamArchivo{fs: f, n: n, escribible: acceso != ORdonly}, nil
}

func (f *MemFS) Stat(ruta string) (Stat, error) {
	n, err := f.resolver(ruta, true)
	if err != nil {
		return Stat{}, err
	}
	return f.stat(n), nil
}

func (f *MemFS) Lstat(ruta string) (Stat, error) {
	n, err := f.resolver(ruta, false)
	if err != nil {
		return Stat{}, err
	}
	return f.stat(n), nil
}

func (f *MemFS) stat(n *nodo) Stat {
	s := Stat{
		Dev:     1,
		Ino:     n.ino,
		Modo:    n.modo,
		Nlink:   1,
		Blksize: 4096,
		Atime:   n.mtime,
		Mtime:   n.mtime,
		Ctime:   n.mtime,
	}
	switch {
	case n.esDir():
		s.Nlink = 2
		s.Tamanio = 4096
	case n.esLink():
		s.Tamanio = int64(len(n.destino))
	default:
		s.Tamanio = int64(len(n.datos))
	}
	s.Bloques = (s.Tamanio + 511) / 512
	return s
}

// Mkdir crea un directorio. Si ya existe algo con ese nombre falla con EEXIST.
func (f *MemFS) Mkdir(ruta string, modo uint32) error {
	dir, nombre, err := f.padreDe(ruta)
	if err != nil {
		return err
	}
	if _, existe := dir.hijos[nombre]; existe {
		return EEXIST
	}
	dir.hijos[nombre] = f.nuevoNodo(SIfdir|modo&0o7777, dir)
	dir.mtime = f.ahora()
	return nil
}

// MkdirTodo crea ruta y los directorios intermedios que falten.
func (f *MemFS) MkdirTodo(ruta string) error {
	ruta = path.Clean(ruta)
	if ruta == "/" {
		return nil
	}
	if err := f.MkdirTodo(path.Dir(ruta)); err != nil {
		return err
	}
	n, err := f.resolver(ruta, true)
	if err == nil {
		if !n.esDir() {
			return ENOTDIR
		}
		return nil
	}
	return f.Mkdir(ruta, 0o755)
}

func (f *MemFS) Symlink(destino, ruta string) error {
	dir, nombre, err := f.padreDe(ruta)
	if err != nil {
		return err
	}
	if _, existe := dir.hijos[nombre]; existe {
		return EEXIST
	}
	n := f.nuevoNodo(SIflnk|0o777, dir)
	n.destino = destino
	dir.hijos[nombre] = n
	return nil
}

func (f *MemFS) Unlink(ruta string) error {
	dir, nombre, err := f.padreDe(ruta)
	if err != nil {
		return err
	}
	n, existe := dir.hijos[nombre]
	if !existe {
		return ENOENT
	}
	if n.esDir() {
		return EISDIR
	}
	delete(dir.hijos, nombre)
	dir.mtime = f.ahora()
	return nil
}

func (f *MemFS) Readlink(ruta string) (string, error) {
	n, err := f.resolver(ruta, false)
	if err != nil {
		return "", err
	}
	if !n.esLink() {
		return "", EINVAL
	}
	return n.destino, nil
}

func (f *MemFS) Readdir(ruta string) ([]Dirent, error) {
	n, err := f.resolver(ruta, true)
	if err != nil {
		return nil, err
	}
	if !n.esDir() {
		return nil, ENOTDIR
	}
	return entradas(n), nil
}

// EscribirArchivo crea o reemplaza el archivo ruta con datos, creando los directorios que falten.
func (f *MemFS) EscribirArchivo(ruta string, datos []byte, modo uint32) error {
	if err := f.MkdirTodo(path.Dir(path.Clean(ruta))); err != nil {
		return err
	}
	dir, nombre, err := f.padreDe(ruta)
	if err != nil {
		return err
	}
	if viejo, existe := dir.hijos[nombre]; existe && viejo.esDir() {
		return EISDIR
	}
	n := f.nuevoNodo(SIfreg|modo&0o7777, dir)
	n.datos = append([]byte(nil), datos...)
	dir.hijos[nombre] = n
	return nil
}

// Dispositivo registra un dispositivo de caracteres en ruta. abrir se llama en cada open.
func (f *MemFS) Dispositivo(ruta string, abrir func() Stream) error {
	if err := f.MkdirTodo(path.Dir(path.Clean(ruta))); err != nil {
		return err
	}
	dir, nombre, err := f.padreDe(ruta)
	if err != nil {
		return err
	}
	n := f.nuevoNodo(SIfchr|0o666, dir)
	n.abrir = abrir
	dir.hijos[nombre] = n
	return nil
}

func entradas(n *nodo) []Dirent {
	nombres := make([]string, 0, len(n.hijos))
	for nombre := range n.hijos {
		nombres = append(nombres, nombre)
	}
	sort.Strings(nombres)

	lista := []Dirent{
		{Nombre: ".", Ino: n.ino, Tipo: DTDir},
		{Nombre: "..", Ino: n.padre.ino, Tipo: DTDir},
	}
	for _, nombre := range nombres {
		h := n.hijos[nombre]
		lista = append(lista, Dirent{Nombre: nombre, Ino: h.ino, Tipo: TipoDirent(h.modo)})
	}
	return lista
}

type streamArchivo struct {
	fs         *MemFS
	n          *nodo
	escribible bool
}

func (s *streamArchivo) Read(buf []byte, pos int64) (int, error) {
	if pos < 0 {
		return 0, EINVAL
	}
	if pos >= int64(len(s.n.datos)) {
		return 0, nil
	}
	return copy(buf, s.n.datos[pos:]), nil
}

func (s *streamArchivo) Write(buf []byte, pos int64) (int, error) {
	if !s.escribible {
		return 0, EBADF
	}
	fin := pos + int64(len(buf))
	if pos < 0 || fin > TamMaximoArchivo {
		return 0, EFBIG
	}
	if largo := int64(len(s.n.datos)); fin > largo {
		if fin > int64(cap(s.n.datos)) {
			nuevo := make([]byte, fin, min(2*fin, TamMaximoArchivo))
			copy(nuevo, s.n.datos)
			s.n.datos = nuevo
		} else {
			s.n.datos = s.n.datos[:fin]
			clear(s.n.datos[largo:])
		}
	}
	copy(s.n.datos[pos:], buf)
	s.n.mtime = s.fs.ahora()
	return len(buf), nil
}

func (s *streamArchivo) Stat() (Stat, error) {
	return s.fs.stat(s.n), nil
}

func (s *streamArchivo) Close() error {
	return nil
}

type streamDirectorio struct {
	fs *MemFS
	n  *nodo
}

func (s *streamDirectorio) Read([]byte, int64) (int, error)  { return 0, EISDIR }
func (s *streamDirectorio) Write([]byte, int64) (int, error) { return 0, EISDIR }
func (s *streamDirectorio) Stat() (Stat, error)              { return s.fs.stat(s.n), nil }
func (s *streamDirectorio) Close() error                     { return nil }

func (s *streamDirectorio) Entradas() ([]Dirent, error) {
	return entradas(s.n), nil
}
