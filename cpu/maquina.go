package cpu

import (
	"errors"
	"fmt"
	"time"
	"weak"

	"github.com/sisoputnfrba/mips-golang/memoria"
	"github.com/sisoputnfrba/mips-golang/utils/log"
)

const (
	// DataEndInicial es el cursor de brk de una máquina recién creada.
	DataEndInicial = 0x01000000
)

var (
	ErrInstruccionNoSoportada = errors.New("instrucción no soportada")
	ErrSyscallNoSoportada     = errors.New("syscall no soportada")
)

// Maquina es un proceso MIPS: registros, pc/npc con el modelo de delay slot y su memoria virtual.
type Maquina struct {
	Regs    [32]uint32
	Hi, Lo  uint32
	PC, NPC uint32
	Mem     *memoria.VMem
	DataEnd uint32
	TLS     uint32

	id            int
	padre         weak.Pointer[Maquina]
	motor         *Motor
	running       bool
	blocked       bool
	stopped       bool
	falla         error
	precompilado  Rutina
	alDetener     []func(*Maquina)
	instrucciones uint64
}

func (m *Maquina) ID() int {
	return m.id
}

func (m *Maquina) Motor() *Motor {
	return m.motor
}

// Padre devuelve la máquina que hizo fork de esta, o nil si ya no existe o nunca hubo.
func (m *Maquina) Padre() *Maquina {
	return m.padre.Value()
}

// Desvincular corta la referencia al padre (queda huérfana).
func (m *Maquina) Desvincular() {
	m.padre = weak.Pointer[Maquina]{}
}

func (m *Maquina) Corriendo() bool { return m.running }
func (m *Maquina) Bloqueada() bool { return m.blocked }
func (m *Maquina) Detenida() bool  { return m.stopped }

// Falla es el motivo por el que la máquina se detuvo sola, si lo hubo.
func (m *Maquina) Falla() error {
	return m.falla
}

// Instrucciones cuenta las instrucciones que pasaron por el intérprete.
func (m *Maquina) Instrucciones() uint64 {
	return m.instrucciones
}

// SetPrecompilado reemplaza la recompilación por página con una rutina de programa completo.
func (m *Maquina) SetPrecompilado(r Rutina) {
	m.precompilado = r
}

// AlDetener registra f para cuando esta máquina se detenga. Corre después de los hooks globales.
func (m *Maquina) AlDetener(f func(*Maquina)) {
	if m.stopped {
		f(m)
		return
	}
	m.alDetener = append(m.alDetener, f)
}

// Run ejecuta una rebanada de tiempo con la configuración del motor.
func (m *Maquina) Run() {
	m.RunFor(m.motor.Config.RebanadaTiempo)
}

// RunFor ejecuta hasta que la máquina se detenga, se bloquee o se agote la rebanada.
// Si al final sigue ejecutable vuelve al planificador.
func (m *Maquina) RunFor(rebanada time.Duration) {
	if m.running || m.blocked || m.stopped {
		return
	}
	m.running = true
	inicio := time.Now()
	jit := m.motor.Config.JIT

	for n := 0; !m.stopped && !m.blocked; n++ {
		if n&1023 == 1023 && time.Since(inicio) >= rebanada {
			break
		}
		if jit && m.NPC == m.PC+4 {
			if r := m.motor.rutinaPara(m); r != nil && r.Correr(m) {
				continue
			}
			if m.stopped || m.blocked {
				break
			}
		}
		m.Step()
	}

	m.running = false
	if !m.stopped && !m.blocked {
		m.motor.encolar(m)
	}
}

// Step interpreta una sola instrucción.
func (m *Maquina) Step() {
	opc := m.PC
	op := m.Mem.Get(opc)
	m.PC = m.NPC
	m.NPC = m.PC + 4
	m.instrucciones++
	m.ejecutar(opc, op)
	m.Regs[0] = 0
}

// Stop detiene la máquina para siempre y avisa a los hooks y a quienes esperaban.
func (m *Maquina) Stop() {
	if m.stopped {
		return
	}
	m.stopped = true
	delete(m.motor.maquinas, m.id)

	for _, h := range m.motor.hooksDetener {
		h(m)
	}
	esperas := m.alDetener
	m.alDetener = nil
	for _, f := range esperas {
		f(m)
	}
}

func (m *Maquina) Block() {
	m.blocked = true
}

// Unblock vuelve a poner en marcha la máquina si no estaba corriendo.
func (m *Maquina) Unblock() {
	m.blocked = false
	if !m.running && !m.stopped {
		m.motor.reprogramar(m)
	}
}

// Fork crea un hijo con los mismos registros y la memoria compartida copy-on-write.
// No lo ejecuta: eso queda para quien atiende la syscall.
func (m *Maquina) Fork() *Maquina {
	h := m.motor.crear()
	h.Regs = m.Regs
	h.Hi, h.Lo = m.Hi, m.Lo
	h.PC, h.NPC = m.PC, m.NPC
	h.DataEnd = m.DataEnd
	h.TLS = m.TLS
	h.precompilado = m.precompilado
	h.Mem = m.Mem.Fork()
	h.padre = weak.Make(m)

	for _, f := range m.motor.hooksFork {
		f(m, h)
	}
	return h
}

// Reiniciar deja la máquina como recién creada, conservando id y padre. Lo usa execve.
func (m *Maquina) Reiniciar() {
	m.Regs = [32]uint32{}
	m.Hi, m.Lo = 0, 0
	m.PC, m.NPC = 0, 4
	m.Mem = memoria.New()
	m.DataEnd = DataEndInicial
	m.TLS = 0
	m.precompilado = nil
}

func (m *Maquina) fallar(err error) {
	m.falla = err
	m.motor.Log.Error("Máquina detenida por error",
		log.IntAttr("pid", m.id),
		log.ErrAttr(err),
	)
	m.Stop()
}

func errInstruccion(op, opc uint32) error {
	return fmt.Errorf("%w: 0x%08x en 0x%08x", ErrInstruccionNoSoportada, op, opc)
}

func errSyscall(num, opc uint32) error {
	return fmt.Errorf("%w: %d en 0x%08x", ErrSyscallNoSoportada, num, opc)
}
