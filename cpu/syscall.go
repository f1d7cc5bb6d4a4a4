package cpu

import "github.com/sisoputnfrba/mips-golang/utils/log"

// SyscallFunc atiende una syscall. Recibe los registros $4..$6 ya leídos; los argumentos
// restantes ($7 o la pila) los lee el propio handler.
type SyscallFunc func(m *Maquina, a, b, c uint32) Resultado

// Resultado es lo que devuelve una syscall: o un valor listo o un bloqueo.
type Resultado struct {
	valor   int32
	bloqueo *Bloqueo
}

// Hecho es un resultado inmediato. Los errores viajan como -errno.
func Hecho(v int32) Resultado {
	return Resultado{valor: v}
}

// Bloquear suspende la máquina hasta que alguien llame a b.Desbloquear; después la syscall se reintenta.
func Bloquear(b *Bloqueo) Resultado {
	return Resultado{bloqueo: b}
}

func (r Resultado) Valor() int32 {
	return r.valor
}

func (r Resultado) Bloqueado() (*Bloqueo, bool) {
	return r.bloqueo, r.bloqueo != nil
}

// Bloqueo es la continuación de una syscall que no pudo completarse.
// Todas sus operaciones corren en la goroutine del planificador.
type Bloqueo struct {
	esperas  []func()
	liberado bool
}

func NuevoBloqueo() *Bloqueo {
	return &Bloqueo{}
}

// Esperar registra f para cuando el bloqueo se libere. Si ya se liberó, f corre en el acto.
func (b *Bloqueo) Esperar(f func()) {
	if b.liberado {
		f()
		return
	}
	b.esperas = append(b.esperas, f)
}

// Desbloquear libera el bloqueo; las llamadas repetidas no hacen nada.
func (b *Bloqueo) Desbloquear() {
	if b.liberado {
		return
	}
	b.liberado = true
	esperas := b.esperas
	b.esperas = nil
	for _, f := range esperas {
		f()
	}
}

func (b *Bloqueo) Liberado() bool {
	return b.liberado
}

// syscall despacha la syscall cuyo número está en $2. opc es la dirección de la instrucción.
func (m *Maquina) syscall(opc uint32) {
	num := m.Regs[2]
	s, ok := m.motor.syscalls[num]
	if !ok {
		m.fallar(errSyscall(num, opc))
		return
	}

	if m.motor.trazar {
		m.motor.Log.Debug("Syscall",
			log.IntAttr("pid", m.id),
			log.StringAttr("nombre", s.nombre),
			log.IntAttr("numero", int(num)),
			log.HexAttr("a0", m.Regs[4]),
			log.HexAttr("a1", m.Regs[5]),
			log.HexAttr("a2", m.Regs[6]),
		)
	}

	r := s.f(m, m.Regs[4], m.Regs[5], m.Regs[6])
	if b, bloqueada := r.Bloqueado(); bloqueada {
		// al desbloquear se vuelve a ejecutar la misma instrucción syscall
		m.PC = opc
		m.NPC = opc + 4
		m.Block()
		b.Esperar(m.Unblock)
		return
	}

	m.Regs[2] = uint32(r.valor)
	m.Regs[7] = 0
}
