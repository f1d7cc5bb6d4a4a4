package internal

import (
	"errors"
	"io"
	"path"

	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fd"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fs"
)

// maxTransferencia acota lo que se copia por llamada de read/write.
const maxTransferencia = 1 << 20

const tamStat64 = 104

func (k *Kernel) registrarArchivos() {
	mo := k.Motor
	mo.RegistrarSyscall(NrRead, "read", k.sysRead)
	mo.RegistrarSyscall(NrWrite, "write", k.sysWrite)
	mo.RegistrarSyscall(NrWritev, "writev", k.sysWritev)
	mo.RegistrarSyscall(NrOpen, "open", k.sysOpen)
	mo.RegistrarSyscall(NrClose, "close", k.sysClose)
	mo.RegistrarSyscall(NrLseek, "lseek", k.sysLseek)
	mo.RegistrarSyscall(NrLlseek, "_llseek", k.sysLlseek)
	mo.RegistrarSyscall(NrDup, "dup", k.sysDup)
	mo.RegistrarSyscall(NrDup2, "dup2", k.sysDup2)
	mo.RegistrarSyscall(NrPipe, "pipe", k.sysPipe)
	mo.RegistrarSyscall(NrUnlink, "unlink", k.sysUnlink)
	mo.RegistrarSyscall(NrMkdir, "mkdir", k.sysMkdir)
	mo.RegistrarSyscall(NrSymlink, "symlink", k.sysSymlink)
	mo.RegistrarSyscall(NrReadlink, "readlink", k.sysReadlink)
	mo.RegistrarSyscall(NrChdir, "chdir", k.sysChdir)
	mo.RegistrarSyscall(NrGetcwd, "getcwd", k.sysGetcwd)
	mo.RegistrarSyscall(NrAccess, "access", k.sysAccess)
	mo.RegistrarSyscall(NrStat64, "stat64", k.sysStat64)
	mo.RegistrarSyscall(NrLstat64, "lstat64", k.sysLstat64)
	mo.RegistrarSyscall(NrFstat64, "fstat64", k.sysFstat64)
	mo.RegistrarSyscall(NrGetdents64, "getdents64", k.sysGetdents64)
	mo.RegistrarSyscall(NrSendfile64, "sendfile64", k.sysSendfile64)
	mo.RegistrarSyscall(NrPoll, "poll", sysPoll)
}

// descriptor busca n en la tabla del proceso de m.
func (k *Kernel) descriptor(m *cpu.Maquina, n uint32) (*Proceso, *fd.Descriptor, bool) {
	p := k.proceso(m)
	d, ok := p.FDs.Obtener(int(int32(n)))
	return p, d, ok
}

func (k *Kernel) sysRead(m *cpu.Maquina, n, buf, cuenta uint32) cpu.Resultado {
	_, d, ok := k.descriptor(m, n)
	if !ok || !d.Legible() {
		return errno(fs.EBADF)
	}
	datos := make([]byte, min(cuenta, maxTransferencia))
	leidos, err := d.Stream().Read(datos, d.Posicion)
	if err != nil && !errors.Is(err, io.EOF) {
		return k.falloDesc(d, err)
	}
	m.Mem.Escribir(buf, datos[:leidos])
	d.Posicion += int64(leidos)
	return hecho(leidos)
}

func (k *Kernel) sysWrite(m *cpu.Maquina, n, buf, cuenta uint32) cpu.Resultado {
	_, d, ok := k.descriptor(m, n)
	if !ok || !d.Escribible() {
		return errno(fs.EBADF)
	}
	if d.Flags&fs.OAppend != 0 {
		if st, err := d.Stream().Stat(); err == nil && st.Posicionable() {
			d.Posicion = st.Tamanio
		}
	}
	datos := m.Mem.Leer(buf, int(min(cuenta, maxTransferencia)))
	escritos, err := d.Stream().Write(datos, d.Posicion)
	if err != nil && escritos == 0 {
		return k.falloDesc(d, err)
	}
	d.Posicion += int64(escritos)
	return hecho(escritos)
}

// sysWritev se apoya en write. Una escritura corta corta el recorrido.
func (k *Kernel) sysWritev(m *cpu.Maquina, n, iov, cantidad uint32) cpu.Resultado {
	total := 0
	for i := uint32(0); i < cantidad; i++ {
		base := m.Mem.Get(iov + 8*i)
		largo := m.Mem.Get(iov + 8*i + 4)
		r := k.sysWrite(m, n, base, largo)
		if _, bloqueada := r.Bloqueado(); bloqueada {
			if total == 0 {
				return r
			}
			return hecho(total)
		}
		v := int(r.Valor())
		if v < 0 {
			if total == 0 {
				return r
			}
			return hecho(total)
		}
		total += v
		if uint32(v) < largo {
			break
		}
	}
	return hecho(total)
}

func (k *Kernel) sysOpen(m *cpu.Maquina, nombre, flags, modo uint32) cpu.Resultado {
	p := k.proceso(m)
	ruta, err := k.rutaDe(p, nombre)
	if err != nil {
		return k.fallo(err)
	}
	s, err := k.FS.Open(ruta, int(flags), modo)
	if err != nil {
		return k.fallo(err)
	}
	// los flags de creación no quedan en el descriptor
	num, err := p.FDs.Abrir(s, int(flags)&^(fs.OCreat|fs.OExcl|fs.OTrunc|fs.ONoctty))
	if err != nil {
		return k.fallo(err)
	}
	return hecho(num)
}

func (k *Kernel) sysClose(m *cpu.Maquina, n, _, _ uint32) cpu.Resultado {
	if err := k.proceso(m).FDs.Cerrar(int(int32(n))); err != nil {
		return k.fallo(err)
	}
	return cpu.Hecho(0)
}

// buscar calcula la nueva posición de d. Los streams secuenciales no tienen posición.
func buscar(d *fd.Descriptor, desplazamiento int64, desde uint32) (int64, error) {
	st, err := d.Stream().Stat()
	if err != nil {
		return 0, err
	}
	if !st.Posicionable() {
		return 0, fs.ESPIPE
	}
	var pos int64
	switch desde {
	case seekSet:
		pos = desplazamiento
	case seekCur:
		pos = d.Posicion + desplazamiento
	case seekEnd:
		pos = st.Tamanio + desplazamiento
	default:
		return 0, fs.EINVAL
	}
	if pos < 0 {
		return 0, fs.EINVAL
	}
	if pos > fs.TamMaximoArchivo {
		return 0, fs.EFBIG
	}
	d.Posicion = pos
	return pos, nil
}

func (k *Kernel) sysLseek(m *cpu.Maquina, n, desplazamiento, desde uint32) cpu.Resultado {
	_, d, ok := k.descriptor(m, n)
	if !ok {
		return errno(fs.EBADF)
	}
	pos, err := buscar(d, int64(int32(desplazamiento)), desde)
	if err != nil {
		return k.fallo(err)
	}
	if pos > 0x7FFFFFFF {
		return errno(fs.EINVAL)
	}
	return hecho(int(pos))
}

// sysLlseek recibe el desplazamiento partido en dos palabras; el resultado en $7 y whence en la pila.
func (k *Kernel) sysLlseek(m *cpu.Maquina, n, alto, bajo uint32) cpu.Resultado {
	resultado := m.Regs[7]
	desde := argPila(m, 0)
	_, d, ok := k.descriptor(m, n)
	if !ok {
		return errno(fs.EBADF)
	}
	pos, err := buscar(d, int64(uint64(alto)<<32|uint64(bajo)), desde)
	if err != nil {
		return k.fallo(err)
	}
	m.Mem.Setd(resultado, uint64(pos))
	return cpu.Hecho(0)
}

func (k *Kernel) sysDup(m *cpu.Maquina, n, _, _ uint32) cpu.Resultado {
	num, err := k.proceso(m).FDs.Dup(int(int32(n)), 0, false)
	if err != nil {
		return k.fallo(err)
	}
	return hecho(num)
}

func (k *Kernel) sysDup2(m *cpu.Maquina, viejo, nuevo, _ uint32) cpu.Resultado {
	num, err := k.proceso(m).FDs.Dup2(int(int32(viejo)), int(int32(nuevo)))
	if err != nil {
		return k.fallo(err)
	}
	return hecho(num)
}

// sysPipe devuelve el extremo de lectura en $2 y el de escritura en $3, como el ABI de MIPS.
func (k *Kernel) sysPipe(m *cpu.Maquina, _, _, _ uint32) cpu.Resultado {
	p := k.proceso(m)
	lectura, escritura := fs.NuevoPipe()
	nl, err := p.FDs.Abrir(lectura, fs.ORdonly)
	if err != nil {
		_ = escritura.Close()
		return k.fallo(err)
	}
	ne, err := p.FDs.Abrir(escritura, fs.OWronly)
	if err != nil {
		_ = p.FDs.Cerrar(nl)
		return k.fallo(err)
	}
	m.Regs[3] = uint32(ne)
	return hecho(nl)
}

// conRuta adapta una operación de ruta única a syscall.
func (k *Kernel) conRuta(m *cpu.Maquina, nombre uint32, op func(p *Proceso, ruta string) error) cpu.Resultado {
	p := k.proceso(m)
	ruta, err := k.rutaDe(p, nombre)
	if err == nil {
		err = op(p, ruta)
	}
	if err != nil {
		return k.fallo(err)
	}
	return cpu.Hecho(0)
}

func (k *Kernel) sysUnlink(m *cpu.Maquina, nombre, _, _ uint32) cpu.Resultado {
	return k.conRuta(m, nombre, func(_ *Proceso, ruta string) error {
		return k.FS.Unlink(ruta)
	})
}

func (k *Kernel) sysMkdir(m *cpu.Maquina, nombre, modo, _ uint32) cpu.Resultado {
	return k.conRuta(m, nombre, func(_ *Proceso, ruta string) error {
		return k.FS.Mkdir(ruta, modo)
	})
}

// sysSymlink guarda el destino tal cual lo pasó el programa, relativo o no.
func (k *Kernel) sysSymlink(m *cpu.Maquina, destino, nombre, _ uint32) cpu.Resultado {
	d := m.Mem.Getstrn(destino, pathMax)
	return k.conRuta(m, nombre, func(_ *Proceso, ruta string) error {
		return k.FS.Symlink(d, ruta)
	})
}

func (k *Kernel) sysAccess(m *cpu.Maquina, nombre, _, _ uint32) cpu.Resultado {
	return k.conRuta(m, nombre, func(_ *Proceso, ruta string) error {
		_, err := k.FS.Stat(ruta)
		return err
	})
}

func (k *Kernel) sysChdir(m *cpu.Maquina, nombre, _, _ uint32) cpu.Resultado {
	return k.conRuta(m, nombre, func(p *Proceso, ruta string) error {
		st, err := k.FS.Stat(ruta)
		if err != nil {
			return err
		}
		if !st.EsDirectorio() {
			return fs.ENOTDIR
		}
		p.Cwd = path.Clean(ruta)
		return nil
	})
}

// sysReadlink no termina la cadena en NUL y trunca al tamaño del buffer.
func (k *Kernel) sysReadlink(m *cpu.Maquina, nombre, buf, tam uint32) cpu.Resultado {
	p := k.proceso(m)
	ruta, err := k.rutaDe(p, nombre)
	if err != nil {
		return k.fallo(err)
	}
	destino, err := k.FS.Readlink(ruta)
	if err != nil {
		return k.fallo(err)
	}
	if uint32(len(destino)) > tam {
		destino = destino[:tam]
	}
	m.Mem.Escribir(buf, []byte(destino))
	return hecho(len(destino))
}

func (k *Kernel) sysGetcwd(m *cpu.Maquina, buf, tam, _ uint32) cpu.Resultado {
	cwd := k.proceso(m).Cwd
	if uint32(len(cwd)+1) > tam {
		return errno(fs.ERANGE)
	}
	m.Mem.Setstr(buf, cwd)
	return cpu.Hecho(int32(buf))
}

func (k *Kernel) sysStat64(m *cpu.Maquina, nombre, buf, _ uint32) cpu.Resultado {
	return k.statRuta(m, nombre, buf, k.FS.Stat)
}

func (k *Kernel) sysLstat64(m *cpu.Maquina, nombre, buf, _ uint32) cpu.Resultado {
	return k.statRuta(m, nombre, buf, k.FS.Lstat)
}

func (k *Kernel) statRuta(m *cpu.Maquina, nombre, buf uint32, stat func(string) (fs.Stat, error)) cpu.Resultado {
	p := k.proceso(m)
	ruta, err := k.rutaDe(p, nombre)
	if err != nil {
		return k.fallo(err)
	}
	st, err := stat(ruta)
	if err != nil {
		return k.fallo(err)
	}
	escribirStat64(m, buf, st)
	return cpu.Hecho(0)
}

func (k *Kernel) sysFstat64(m *cpu.Maquina, n, buf, _ uint32) cpu.Resultado {
	_, d, ok := k.descriptor(m, n)
	if !ok {
		return errno(fs.EBADF)
	}
	st, err := d.Stream().Stat()
	if err != nil {
		return k.fallo(err)
	}
	escribirStat64(m, buf, st)
	return cpu.Hecho(0)
}

// escribirStat64 vuelca st con el layout de struct stat64 de MIPS o32.
func escribirStat64(m *cpu.Maquina, buf uint32, st fs.Stat) {
	m.Mem.Escribir(buf, make([]byte, tamStat64))
	m.Mem.Set(buf, uint32(st.Dev))
	m.Mem.Setd(buf+16, st.Ino)
	m.Mem.Set(buf+24, st.Modo)
	m.Mem.Set(buf+28, st.Nlink)
	m.Mem.Set(buf+32, st.UID)
	m.Mem.Set(buf+36, st.GID)
	m.Mem.Set(buf+40, uint32(st.Rdev))
	m.Mem.Setd(buf+56, uint64(st.Tamanio))
	m.Mem.Set(buf+64, uint32(st.Atime.Unix()))
	m.Mem.Set(buf+68, uint32(st.Atime.Nanosecond()))
	m.Mem.Set(buf+72, uint32(st.Mtime.Unix()))
	m.Mem.Set(buf+76, uint32(st.Mtime.Nanosecond()))
	m.Mem.Set(buf+80, uint32(st.Ctime.Unix()))
	m.Mem.Set(buf+84, uint32(st.Ctime.Nanosecond()))
	m.Mem.Set(buf+88, st.Blksize)
	m.Mem.Setd(buf+96, uint64(st.Bloques))
}

// sysGetdents64 usa la posición del descriptor como índice de la próxima entrada.
func (k *Kernel) sysGetdents64(m *cpu.Maquina, n, buf, tam uint32) cpu.Resultado {
	_, d, ok := k.descriptor(m, n)
	if !ok {
		return errno(fs.EBADF)
	}
	dir, ok := d.Stream().(fs.Directorio)
	if !ok {
		return errno(fs.ENOTDIR)
	}
	entradas, err := dir.Entradas()
	if err != nil {
		return k.fallo(err)
	}

	escrito := uint32(0)
	for d.Posicion < int64(len(entradas)) {
		e := entradas[d.Posicion]
		// d_ino, d_off, d_reclen, d_type, nombre y NUL, alineado a 8
		largo := (19 + uint32(len(e.Nombre)) + 1 + 7) &^ 7
		if escrito+largo > tam {
			if escrito == 0 {
				return errno(fs.EINVAL)
			}
			break
		}
		reg := make([]byte, largo)
		copy(reg[19:], e.Nombre)
		ptr := buf + escrito
		m.Mem.Escribir(ptr, reg)
		m.Mem.Setd(ptr, e.Ino)
		m.Mem.Setd(ptr+8, uint64(d.Posicion+1))
		m.Mem.Seth(ptr+16, uint16(largo))
		m.Mem.Setb(ptr+18, e.Tipo)

		escrito += largo
		d.Posicion++
	}
	return hecho(int(escrito))
}

// sysSendfile64 copia de un descriptor a otro sin pasar por memoria del invitado. count viene en $7.
func (k *Kernel) sysSendfile64(m *cpu.Maquina, salida, entrada, offset uint32) cpu.Resultado {
	cuenta := m.Regs[7]
	_, out, ok := k.descriptor(m, salida)
	if !ok || !out.Escribible() {
		return errno(fs.EBADF)
	}
	_, in, ok := k.descriptor(m, entrada)
	if !ok || !in.Legible() {
		return errno(fs.EBADF)
	}

	p := k.proceso(m)
	st, err := in.Stream().Stat()
	if err != nil {
		return k.fallo(err)
	}
	secuencial := !st.Posicionable()

	pos := in.Posicion
	if offset != 0 {
		pos = int64(m.Mem.Getd(offset))
	}
	var datos []byte
	if pend := p.envio; pend != nil && pend.entrada == entrada && pend.salida == salida {
		datos = pend.datos
	} else {
		datos = make([]byte, min(cuenta, maxTransferencia))
		leidos, err := in.Stream().Read(datos, pos)
		if err != nil && !errors.Is(err, io.EOF) {
			return k.falloDesc(in, err)
		}
		datos = datos[:leidos]
	}
	p.envio = nil

	escritos, err := out.Stream().Write(datos, out.Posicion)
	var espera *fs.Pendiente
	if secuencial && escritos < len(datos) && (err == nil || errors.As(err, &espera)) {
		// un pipe no se puede rebobinar: lo que falta se reintenta en la próxima llamada
		p.envio = &envioPendiente{entrada: entrada, salida: salida, datos: datos[escritos:]}
	}
	if err != nil && escritos == 0 {
		return k.falloDesc(out, err)
	}
	out.Posicion += int64(escritos)

	if secuencial {
		return hecho(escritos)
	}
	if offset != 0 {
		m.Mem.Setd(offset, uint64(pos)+uint64(escritos))
	} else {
		in.Posicion += int64(escritos)
	}
	return hecho(escritos)
}

// sysPoll solo resuelve el caso de un descriptor: lo da por listo para leer y escribir.
func sysPoll(m *cpu.Maquina, fds, cantidad, _ uint32) cpu.Resultado {
	if cantidad != 1 {
		return errno(fs.ENOTSUP)
	}
	eventos := m.Mem.Geth(fds + 4)
	m.Mem.Seth(fds+6, eventos&0x5)
	return cpu.Hecho(1)
}
