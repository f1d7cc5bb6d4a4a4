package internal

import (
	"fmt"

	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fs"
)

func (k *Kernel) registrarSenales() {
	k.Motor.RegistrarSyscall(NrKill, "kill", k.sysKill)
	k.Motor.RegistrarSyscall(NrRtSigaction, "rt_sigaction", sysCero)
	k.Motor.RegistrarSyscall(NrRtSigprocmask, "rt_sigprocmask", sysCero)
	k.Motor.RegistrarSyscall(NrSetThreadArea, "set_thread_area", sysSetThreadArea)
}

// sysKill no entrega señales: SIGKILL y SIGTERM terminan al proceso y el resto se ignora.
func (k *Kernel) sysKill(m *cpu.Maquina, pidArg, senal, _ uint32) cpu.Resultado {
	pid := int(int32(pidArg))
	if pid <= 0 {
		pid = m.ID()
	}
	p, ok := k.procesos[pid]
	if !ok || p.Terminado {
		return errno(fs.ESRCH)
	}
	if senal == senalKill || senal == senalTerm {
		k.Log.Info(fmt.Sprintf("## (%d) - Recibe la señal %d de (%d)", pid, senal, m.ID()))
		p.Senal = int(senal)
		p.Maquina.Stop()
	}
	return cpu.Hecho(0)
}

// sysSetThreadArea guarda el puntero de TLS que después devuelve rdhwr $29.
func sysSetThreadArea(m *cpu.Maquina, addr, _, _ uint32) cpu.Resultado {
	m.TLS = addr
	return cpu.Hecho(0)
}
