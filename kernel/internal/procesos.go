package internal

import (
	"sort"

	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fd"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fs"
)

const tamCampoUtsname = 65

var utsname = [...]string{"Linux", "mipsim", "4.19.0", "#1 mipsim", "mips", ""}

func (k *Kernel) registrarProcesos() {
	mo := k.Motor
	mo.RegistrarSyscall(NrExit, "exit", k.sysExit)
	mo.RegistrarSyscall(NrExitGroup, "exit_group", k.sysExit)
	mo.RegistrarSyscall(NrFork, "fork", k.sysFork)
	mo.RegistrarSyscall(NrExecve, "execve", k.sysExecve)
	mo.RegistrarSyscall(NrWait4, "wait4", k.sysWait4)
	mo.RegistrarSyscall(NrGetpid, "getpid", sysGetpid)
	mo.RegistrarSyscall(NrGetpgid, "getpgid", sysGetpid)
	mo.RegistrarSyscall(NrGettid, "gettid", sysGetpid)
	mo.RegistrarSyscall(NrSetTidAddress, "set_tid_address", sysGetpid)
	mo.RegistrarSyscall(NrGetppid, "getppid", sysGetppid)
	mo.RegistrarSyscall(NrGetuid, "getuid", sysCero)
	mo.RegistrarSyscall(NrGeteuid, "geteuid", sysCero)
	mo.RegistrarSyscall(NrGetgid, "getgid", sysCero)
	mo.RegistrarSyscall(NrGetegid, "getegid", sysCero)
	mo.RegistrarSyscall(NrSetpgid, "setpgid", sysSetpgid)
	mo.RegistrarSyscall(NrUname, "uname", sysUname)
	mo.RegistrarSyscall(NrPrlimit64, "prlimit64", sysPrlimit64)
}

func sysCero(*cpu.Maquina, uint32, uint32, uint32) cpu.Resultado {
	return cpu.Hecho(0)
}

func (k *Kernel) sysExit(m *cpu.Maquina, codigo, _, _ uint32) cpu.Resultado {
	k.proceso(m).CodigoSalida = int(codigo & 0xff)
	m.Stop()
	return cpu.Hecho(0)
}

// sysFork corre una rebanada del hijo antes de volver al padre.
func (k *Kernel) sysFork(m *cpu.Maquina, _, _, _ uint32) cpu.Resultado {
	h := m.Fork()
	h.Regs[2] = 0
	h.Regs[7] = 0
	h.Run()
	return hecho(h.ID())
}

func (k *Kernel) sysExecve(m *cpu.Maquina, nombre, argv, envp uint32) cpu.Resultado {
	p := k.proceso(m)
	ruta, err := k.rutaDe(p, nombre)
	if err != nil {
		return k.fallo(err)
	}
	args := leerVectorCadenas(m, argv)
	env := leerVectorCadenas(m, envp)
	if err := k.Exec(p, ruta, args, env); err != nil {
		return k.fallo(err)
	}
	return cpu.Hecho(0)
}

// leerVectorCadenas lee un arreglo de punteros a cadenas terminado en NULL.
func leerVectorCadenas(m *cpu.Maquina, addr uint32) []string {
	var cs []string
	if addr == 0 {
		return cs
	}
	for ; ; addr += 4 {
		ptr := m.Mem.Get(addr)
		if ptr == 0 {
			return cs
		}
		cs = append(cs, m.Mem.Getstr(ptr))
	}
}

// sysWait4 recoge un hijo terminado. Si no hay ninguno se bloquea hasta que alguno se detenga.
func (k *Kernel) sysWait4(m *cpu.Maquina, pidArg, wstatus, opciones uint32) cpu.Resultado {
	p := k.proceso(m)
	pid := int(int32(pidArg))

	var candidatos []*Proceso
	if pid > 0 {
		h, ok := p.Hijos[pid]
		if !ok {
			return errno(fs.ECHILD)
		}
		candidatos = []*Proceso{h}
	} else {
		for _, h := range p.Hijos {
			candidatos = append(candidatos, h)
		}
		sort.Slice(candidatos, func(i, j int) bool { return candidatos[i].PID < candidatos[j].PID })
	}
	if len(candidatos) == 0 {
		return errno(fs.ECHILD)
	}

	for _, h := range candidatos {
		if h.Terminado {
			k.recoger(p, h)
			if wstatus != 0 {
				m.Mem.Set(wstatus, h.EstadoEspera())
			}
			return hecho(h.PID)
		}
	}
	if opciones&wnohang != 0 {
		return cpu.Hecho(0)
	}

	// lo despierta alDetener del primer hijo que termine; el reintento vuelve a elegir
	p.esperaHijo = cpu.NuevoBloqueo()
	return cpu.Bloquear(p.esperaHijo)
}

func (k *Kernel) recoger(padre, hijo *Proceso) {
	delete(padre.Hijos, hijo.PID)
	delete(k.procesos, hijo.PID)
}

func sysGetpid(m *cpu.Maquina, _, _, _ uint32) cpu.Resultado {
	return hecho(m.ID())
}

func sysGetppid(m *cpu.Maquina, _, _, _ uint32) cpu.Resultado {
	if pm := m.Padre(); pm != nil {
		return hecho(pm.ID())
	}
	return cpu.Hecho(1)
}

// sysSetpgid solo acepta que un proceso sea líder de su propio grupo.
func sysSetpgid(m *cpu.Maquina, pid, pgid, _ uint32) cpu.Resultado {
	if pid == 0 {
		pid = uint32(m.ID())
	}
	if pgid == 0 {
		pgid = uint32(m.ID())
	}
	if pid != pgid {
		return errno(fs.ENOTSUP)
	}
	return cpu.Hecho(0)
}

func sysUname(m *cpu.Maquina, buf, _, _ uint32) cpu.Resultado {
	if buf == 0 {
		return errno(fs.EFAULT)
	}
	campo := make([]byte, tamCampoUtsname)
	for i, s := range utsname {
		clear(campo)
		copy(campo, s)
		m.Mem.Escribir(buf+uint32(i*tamCampoUtsname), campo)
	}
	return cpu.Hecho(0)
}

// sysPrlimit64 informa límites infinitos salvo la pila y los descriptores; no permite cambiarlos.
func sysPrlimit64(m *cpu.Maquina, _, recurso, _ uint32) cpu.Resultado {
	viejo := m.Regs[7]
	if viejo == 0 {
		return cpu.Hecho(0)
	}
	limite := ^uint64(0)
	switch recurso {
	case 3: // RLIMIT_STACK
		limite = 8 << 20
	case 5: // RLIMIT_NOFILE
		limite = fd.MaxDescriptores
	}
	m.Mem.Setd(viejo, limite)
	m.Mem.Setd(viejo+8, limite)
	return cpu.Hecho(0)
}
