package internal

import (
	"fmt"
	"time"

	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fs"
)

func (k *Kernel) registrarTiempo() {
	k.Motor.RegistrarSyscall(NrNanosleep, "nanosleep", k.sysNanosleep)
	k.Motor.RegistrarSyscall(NrClockGettime, "clock_gettime", k.sysClockGettime)
}

// sysNanosleep bloquea la máquina y la despierta un timer a través del planificador.
// La syscall se reintenta al desbloquear; el plazo guardado en el proceso distingue el reintento.
func (k *Kernel) sysNanosleep(m *cpu.Maquina, req, _, _ uint32) cpu.Resultado {
	p := k.proceso(m)
	if !p.despertarEn.IsZero() {
		if !k.ahora().Before(p.despertarEn) {
			p.despertarEn = time.Time{}
			return cpu.Hecho(0)
		}
	}

	seg := int32(m.Mem.Get(req))
	nseg := int32(m.Mem.Get(req + 4))
	if seg < 0 || nseg < 0 || nseg >= 1e9 {
		return errno(fs.EINVAL)
	}
	espera := time.Duration(seg)*time.Second + time.Duration(nseg)
	if espera == 0 {
		return cpu.Hecho(0)
	}

	if p.despertarEn.IsZero() {
		p.despertarEn = k.ahora().Add(espera)
	} else {
		espera = p.despertarEn.Sub(k.ahora())
	}
	k.Log.Debug(fmt.Sprintf("## (%d) - Bloqueado por nanosleep", p.PID))

	b := cpu.NuevoBloqueo()
	time.AfterFunc(espera, func() {
		k.despachador.Despertar(b.Desbloquear)
	})
	return cpu.Bloquear(b)
}

// sysClockGettime ignora el reloj pedido: todos dan la hora del host.
func (k *Kernel) sysClockGettime(m *cpu.Maquina, _, tp, _ uint32) cpu.Resultado {
	if tp == 0 {
		return errno(fs.EFAULT)
	}
	t := k.ahora()
	m.Mem.Set(tp, uint32(t.Unix()))
	m.Mem.Set(tp+4, uint32(t.Nanosecond()))
	return cpu.Hecho(0)
}
