package fs

// pipe es un FIFO en memoria compartido por un extremo de lectura y uno de escritura.
type pipe struct {
	buf        []byte
	lectores   int
	escritores int
	espera     *Pendiente
	ino        uint64
}

func (p *pipe) despertar() {
	if e := p.espera; e != nil {
		p.espera = nil
		e.Completar()
	}
}

func (p *pipe) stat() Stat {
	return Stat{
		Dev:     2,
		Ino:     p.ino,
		Modo:    SIfifo | 0o600,
		Nlink:   1,
		Tamanio: int64(len(p.buf)),
		Blksize: 4096,
		Mtime:   inicio,
	}
}

// NuevoPipe devuelve los dos extremos de un pipe.
func NuevoPipe() (lectura, escritura Stream) {
	p := &pipe{lectores: 1, escritores: 1, ino: nuevoIno()}
	return &extremoLectura{p: p}, &extremoEscritura{p: p}
}

type extremoLectura struct {
	p       *pipe
	cerrado bool
}

// Read bloquea (con *Pendiente) mientras el pipe esté vacío y queden escritores; sin escritores es fin de archivo.
func (e *extremoLectura) Read(buf []byte, _ int64) (int, error) {
	p := e.p
	if len(buf) == 0 {
		return 0, nil
	}
	if len(p.buf) == 0 {
		if p.escritores == 0 {
			return 0, nil
		}
		if p.espera == nil {
			p.espera = NuevaPendiente()
		}
		return 0, p.espera
	}
	n := copy(buf, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (e *extremoLectura) Write([]byte, int64) (int, error) {
	return 0, EBADF
}

func (e *extremoLectura) Stat() (Stat, error) {
	return e.p.stat(), nil
}

func (e *extremoLectura) Close() error {
	if !e.cerrado {
		e.cerrado = true
		e.p.lectores--
	}
	return nil
}

type extremoEscritura struct {
	p       *pipe
	cerrado bool
}

func (e *extremoEscritura) Read([]byte, int64) (int, error) {
	return 0, EBADF
}

// Write nunca bloquea. Despierta a los lectores en el acto; sin lectores falla con EPIPE.
func (e *extremoEscritura) Write(buf []byte, _ int64) (int, error) {
	p := e.p
	if p.lectores == 0 {
		return 0, EPIPE
	}
	p.buf = append(p.buf, buf...)
	p.despertar()
	return len(buf), nil
}

func (e *extremoEscritura) Stat() (Stat, error) {
	return e.p.stat(), nil
}

func (e *extremoEscritura) Close() error {
	if !e.cerrado {
		e.cerrado = true
		e.p.escritores--
		if e.p.escritores == 0 {
			e.p.despertar()
		}
	}
	return nil
}
