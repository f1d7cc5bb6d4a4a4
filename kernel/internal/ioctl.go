package internal

import (
	"fmt"

	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fd"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fs"
	"github.com/sisoputnfrba/mips-golang/utils/log"
)

// terminal la implementan los streams que se comportan como una tty.
type terminal interface {
	EsTerminal() bool
}

func esTerminal(d *fd.Descriptor) bool {
	t, ok := d.Stream().(terminal)
	return ok && t.EsTerminal()
}

// RegistrarIoctl agrega o reemplaza el handler de un pedido de ioctl.
func (k *Kernel) RegistrarIoctl(pedido uint32, f IoctlFunc) {
	k.ioctls[pedido] = f
}

// RegistrarFcntl agrega o reemplaza el handler de un comando de fcntl64.
func (k *Kernel) RegistrarFcntl(cmd uint32, f FcntlFunc) {
	k.fcntls[cmd] = f
}

func (k *Kernel) registrarIoctls() {
	k.Motor.RegistrarSyscall(NrIoctl, "ioctl", k.sysIoctl)

	k.RegistrarIoctl(TCGETS, func(*Kernel, *Proceso, *fd.Descriptor, uint32) cpu.Resultado {
		return errno(fs.ENOTSUP)
	})
	// 80x25, sin pixeles
	k.RegistrarIoctl(TIOCGWINSZ, func(_ *Kernel, p *Proceso, d *fd.Descriptor, winsz uint32) cpu.Resultado {
		if !esTerminal(d) {
			return errno(fs.ENOTTY)
		}
		p.Maquina.Mem.Seth(winsz, 25)
		p.Maquina.Mem.Seth(winsz+2, 80)
		p.Maquina.Mem.Seth(winsz+4, 0)
		p.Maquina.Mem.Seth(winsz+6, 0)
		return cpu.Hecho(0)
	})
	// cada proceso es su propio grupo en primer plano
	k.RegistrarIoctl(TIOCSPGRP, func(_ *Kernel, p *Proceso, _ *fd.Descriptor, pgrp uint32) cpu.Resultado {
		if int(p.Maquina.Mem.Get(pgrp)) != p.PID {
			return errno(fs.ENOTSUP)
		}
		return cpu.Hecho(0)
	})
	k.RegistrarIoctl(TIOCGPGRP, func(_ *Kernel, p *Proceso, _ *fd.Descriptor, t uint32) cpu.Resultado {
		p.Maquina.Mem.Set(t, uint32(p.PID))
		return cpu.Hecho(0)
	})
}

func (k *Kernel) sysIoctl(m *cpu.Maquina, n, pedido, arg uint32) cpu.Resultado {
	p, d, ok := k.descriptor(m, n)
	if !ok {
		return errno(fs.EBADF)
	}
	f, ok := k.ioctls[pedido]
	if !ok {
		k.Log.Debug(fmt.Sprintf("ioctl no soportado 0x%x", pedido), log.IntAttr("pid", p.PID))
		return errno(fs.ENOTSUP)
	}
	return f(k, p, d, arg)
}

func (k *Kernel) registrarFcntls() {
	k.Motor.RegistrarSyscall(NrFcntl64, "fcntl64", k.sysFcntl64)

	dupfd := func(cloexec bool) FcntlFunc {
		return func(_ *Kernel, p *Proceso, n int, _ *fd.Descriptor, minimo uint32) cpu.Resultado {
			num, err := p.FDs.Dup(n, int(int32(minimo)), cloexec)
			if err != nil {
				return k.fallo(err)
			}
			return hecho(num)
		}
	}
	k.RegistrarFcntl(FDupfd, dupfd(false))
	k.RegistrarFcntl(FDupfdCloexec, dupfd(true))

	k.RegistrarFcntl(FGetfd, func(_ *Kernel, _ *Proceso, _ int, d *fd.Descriptor, _ uint32) cpu.Resultado {
		if d.CloseOnExec {
			return cpu.Hecho(FdCloexec)
		}
		return cpu.Hecho(0)
	})
	k.RegistrarFcntl(FSetfd, func(_ *Kernel, _ *Proceso, _ int, d *fd.Descriptor, arg uint32) cpu.Resultado {
		d.CloseOnExec = arg&FdCloexec != 0
		return cpu.Hecho(0)
	})
	k.RegistrarFcntl(FGetfl, func(_ *Kernel, _ *Proceso, _ int, d *fd.Descriptor, _ uint32) cpu.Resultado {
		return hecho(d.Flags)
	})
	// solo O_APPEND y O_NONBLOCK se pueden cambiar
	k.RegistrarFcntl(FSetfl, func(_ *Kernel, _ *Proceso, _ int, d *fd.Descriptor, arg uint32) cpu.Resultado {
		const cambiables = fs.OAppend | fs.ONonblock
		d.Flags = d.Flags&^cambiables | int(arg)&cambiables
		return cpu.Hecho(0)
	})
}

func (k *Kernel) sysFcntl64(m *cpu.Maquina, n, cmd, arg uint32) cpu.Resultado {
	p, d, ok := k.descriptor(m, n)
	if !ok {
		return errno(fs.EBADF)
	}
	f, ok := k.fcntls[cmd]
	if !ok {
		k.Log.Debug(fmt.Sprintf("fcntl no soportado 0x%x", cmd), log.IntAttr("pid", p.PID))
		return errno(fs.ENOTSUP)
	}
	return f(k, p, int(int32(n)), d, arg)
}
