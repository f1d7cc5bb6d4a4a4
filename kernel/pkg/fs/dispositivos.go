package fs

import (
	"io"
	"time"
)

var inicio = time.Now()

type dispositivoNulo struct{}

func (dispositivoNulo) Read([]byte, int64) (int, error)      { return 0, nil }
func (dispositivoNulo) Write(b []byte, _ int64) (int, error) { return len(b), nil }
func (dispositivoNulo) Close() error                         { return nil }
func (dispositivoNulo) Stat() (Stat, error) {
	return Stat{Ino: 3, Modo: SIfchr | 0o666, Nlink: 1, Rdev: 0x0103, Blksize: 4096, Mtime: inicio}, nil
}

type dispositivoCero struct{}

func (dispositivoCero) Read(b []byte, _ int64) (int, error) {
	clear(b)
	return len(b), nil
}
func (dispositivoCero) Write(b []byte, _ int64) (int, error) { return len(b), nil }
func (dispositivoCero) Close() error                         { return nil }
func (dispositivoCero) Stat() (Stat, error) {
	return Stat{Ino: 5, Modo: SIfchr | 0o666, Nlink: 1, Rdev: 0x0105, Blksize: 4096, Mtime: inicio}, nil
}

// Consola es la terminal de los procesos: escribe en un io.Writer y lee de una cola que se alimenta desde afuera.
// Una lectura con la cola vacía devuelve *Pendiente hasta que llegue entrada.
type Consola struct {
	salida  io.Writer
	entrada []byte
	cerrada bool
	espera  *Pendiente
	ino     uint64
}

func NuevaConsola(salida io.Writer) *Consola {
	return &Consola{salida: salida, ino: nuevoIno()}
}

// Alimentar agrega datos a la entrada y despierta a los lectores.
func (c *Consola) Alimentar(datos []byte) {
	c.entrada = append(c.entrada, datos...)
	c.despertar()
}

// CerrarEntrada hace que las lecturas con la cola vacía devuelvan fin de archivo.
func (c *Consola) CerrarEntrada() {
	c.cerrada = true
	c.despertar()
}

func (c *Consola) despertar() {
	if p := c.espera; p != nil {
		c.espera = nil
		p.Completar()
	}
}

func (c *Consola) Read(buf []byte, _ int64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if len(c.entrada) == 0 {
		if c.cerrada {
			return 0, nil
		}
		if c.espera == nil {
			c.espera = NuevaPendiente()
		}
		return 0, c.espera
	}
	n := copy(buf, c.entrada)
	c.entrada = c.entrada[n:]
	return n, nil
}

func (c *Consola) Write(buf []byte, _ int64) (int, error) {
	return c.salida.Write(buf)
}

func (c *Consola) Stat() (Stat, error) {
	return Stat{
		Ino:     c.ino,
		Modo:    SIfchr | 0o620,
		Nlink:   1,
		Rdev:    0x8800,
		Blksize: 1024,
		Mtime:   inicio,
	}, nil
}

// Close no hace nada: la consola la comparten todos los procesos.
func (c *Consola) Close() error {
	return nil
}

// EsTerminal marca a la consola para ioctl.
func (c *Consola) EsTerminal() bool {
	return true
}
