// Package internal es la capa de sistema operativo del simulador: procesos, tabla de syscalls,
// carga de ELF y el puente entre las máquinas y el sistema de archivos.
package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"time"

	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fd"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fs"
	"github.com/sisoputnfrba/mips-golang/utils/log"
)

// Despachador corre funciones en la goroutine dueña de las máquinas. Lo usan los timers de nanosleep.
type Despachador interface {
	Despertar(f func())
}

// IoctlFunc atiende un pedido de ioctl sobre un descriptor ya validado.
type IoctlFunc func(k *Kernel, p *Proceso, d *fd.Descriptor, arg uint32) cpu.Resultado

// FcntlFunc atiende un comando de fcntl64.
type FcntlFunc func(k *Kernel, p *Proceso, n int, d *fd.Descriptor, arg uint32) cpu.Resultado

type Kernel struct {
	Log   *slog.Logger
	Motor *cpu.Motor
	FS    fs.Sistema

	despachador Despachador
	procesos    map[int]*Proceso
	ioctls      map[uint32]IoctlFunc
	fcntls      map[uint32]FcntlFunc
	ahora       func() time.Time
}

// NewKernel registra los hooks de procesos y todas las syscalls sobre motor.
func NewKernel(motor *cpu.Motor, sistema fs.Sistema, despachador Despachador, logger *slog.Logger) *Kernel {
	k := &Kernel{
		Log:         logger,
		Motor:       motor,
		FS:          sistema,
		despachador: despachador,
		procesos:    make(map[int]*Proceso),
		ioctls:      make(map[uint32]IoctlFunc),
		fcntls:      make(map[uint32]FcntlFunc),
		ahora:       time.Now,
	}

	motor.AlIniciar(k.alIniciar)
	motor.AlForkear(k.alForkear)
	motor.AlDetener(k.alDetener)

	k.registrarProcesos()
	k.registrarArchivos()
	k.registrarMemoria()
	k.registrarTiempo()
	k.registrarSenales()
	k.registrarIoctls()
	k.registrarFcntls()
	return k
}

func (k *Kernel) alIniciar(m *cpu.Maquina) {
	k.procesos[m.ID()] = &Proceso{
		PID:     m.ID(),
		Maquina: m,
		FDs:     fd.NuevaTabla(),
		Cwd:     "/",
		Hijos:   make(map[int]*Proceso),
	}
}

func (k *Kernel) alForkear(padre, hijo *cpu.Maquina) {
	pp := k.procesos[padre.ID()]
	h := &Proceso{
		PID:      hijo.ID(),
		Maquina:  hijo,
		FDs:      pp.FDs.Clonar(),
		Cwd:      pp.Cwd,
		Programa: pp.Programa,
		Args:     pp.Args,
		Hijos:    make(map[int]*Proceso),
	}
	k.procesos[h.PID] = h
	pp.Hijos[h.PID] = h

	k.Log.Info(fmt.Sprintf("## (%d) Se crea el proceso - Estado: NEW", h.PID),
		log.IntAttr("padre", pp.PID),
	)
}

// alDetener cierra los descriptores, deja huérfanos a los hijos y deja al proceso como zombie
// hasta que el padre lo espere.
func (k *Kernel) alDetener(m *cpu.Maquina) {
	p, ok := k.procesos[m.ID()]
	if !ok {
		return
	}
	p.FDs.CerrarTodo()
	p.Terminado = true
	if p.Senal == 0 && m.Falla() != nil {
		p.Senal = senalFalla
	}

	for pid, h := range p.Hijos {
		h.Maquina.Desvincular()
		if h.Terminado {
			delete(k.procesos, pid)
		}
	}
	p.Hijos = map[int]*Proceso{}

	padre := k.padreDe(p)
	if padre == nil {
		delete(k.procesos, p.PID)
	}

	k.Log.Info(fmt.Sprintf("## (%d) - Finaliza el proceso", p.PID),
		log.IntAttr("codigo", p.CodigoSalida),
		log.IntAttr("senal", p.Senal),
	)
	if padre != nil && padre.esperaHijo != nil {
		b := padre.esperaHijo
		padre.esperaHijo = nil
		b.Desbloquear()
	}
}

func (k *Kernel) padreDe(p *Proceso) *Proceso {
	pm := p.Maquina.Padre()
	if pm == nil {
		return nil
	}
	pp, ok := k.procesos[pm.ID()]
	if !ok || pp.Terminado {
		return nil
	}
	return pp
}

func (k *Kernel) proceso(m *cpu.Maquina) *Proceso {
	return k.procesos[m.ID()]
}

// Proceso busca un proceso por pid, vivo o zombie.
func (k *Kernel) Proceso(pid int) (*Proceso, bool) {
	p, ok := k.procesos[pid]
	return p, ok
}

// Procesos lista los procesos conocidos ordenados por pid.
func (k *Kernel) Procesos() []*Proceso {
	lista := make([]*Proceso, 0, len(k.procesos))
	for _, p := range k.procesos {
		lista = append(lista, p)
	}
	sort.Slice(lista, func(i, j int) bool { return lista[i].PID < lista[j].PID })
	return lista
}

// Terminar mata al proceso pid como si hubiera recibido SIGKILL.
func (k *Kernel) Terminar(pid int) error {
	p, ok := k.procesos[pid]
	if !ok || p.Terminado {
		return fs.ESRCH
	}
	p.Senal = senalKill
	p.Maquina.Stop()
	return nil
}

// fallo traduce el error de una operación de archivos al resultado de la syscall.
func (k *Kernel) fallo(err error) cpu.Resultado {
	var pend *fs.Pendiente
	if errors.As(err, &pend) {
		b := cpu.NuevoBloqueo()
		pend.AlCompletar(b.Desbloquear)
		return cpu.Bloquear(b)
	}
	var e fs.Errno
	if errors.As(err, &e) {
		return cpu.Hecho(e.Negativo())
	}
	k.Log.Warn("Error inesperado en una syscall", log.ErrAttr(err))
	return cpu.Hecho(fs.ENOTSUP.Negativo())
}

// falloDesc es fallo para operaciones sobre un descriptor: con O_NONBLOCK no se bloquea.
func (k *Kernel) falloDesc(d *fd.Descriptor, err error) cpu.Resultado {
	var pend *fs.Pendiente
	if d.Flags&fs.ONonblock != 0 && errors.As(err, &pend) {
		return errno(fs.EAGAIN)
	}
	return k.fallo(err)
}

func errno(e fs.Errno) cpu.Resultado {
	return cpu.Hecho(e.Negativo())
}

func hecho(v int) cpu.Resultado {
	return cpu.Hecho(int32(v))
}

// ruta arma la ruta absoluta de una ruta del invitado relativa al cwd del proceso.
func (p *Proceso) ruta(r string) (string, error) {
	switch {
	case r == "":
		return "", fs.ENOENT
	case len(r) >= pathMax:
		return "", fs.ENAMETOOLONG
	case r[0] == '/':
		return r, nil
	}
	return path.Join(p.Cwd, r), nil
}

// rutaDe lee de memoria la cadena en addr y la resuelve.
func (k *Kernel) rutaDe(p *Proceso, addr uint32) (string, error) {
	if addr == 0 {
		return "", fs.EFAULT
	}
	r := p.Maquina.Mem.Getstrn(addr, pathMax)
	return p.ruta(r)
}

// argPila lee el argumento i de los que el ABI o32 pasa por la pila (el quinto es i = 0).
func argPila(m *cpu.Maquina, i uint32) uint32 {
	return m.Mem.Get(m.Regs[29] + 16 + 4*i)
}
