package planificadores

import (
	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/kernel/internal"
	"github.com/sisoputnfrba/mips-golang/utils/log"
)

// Encolar pone a m al final de READY. Lo llama el motor cuando una máquina termina su rebanada
// o se desbloquea.
func (s *Service) Encolar(m *cpu.Maquina) {
	if m.Detenida() {
		return
	}
	for _, lista := range s.Planificador.ReadyQueue {
		if lista == m {
			return
		}
	}
	s.Planificador.BlockQueue, _ = removerDeCola(s.Planificador.BlockQueue, m)
	s.transicion(m, internal.EstadoReady)
	s.Planificador.ReadyQueue = append(s.Planificador.ReadyQueue, m)
	s.avisar()
}

// PlanificadorCortoPlazo es FIFO sobre una sola CPU: la primera máquina de READY corre una rebanada.
// Devuelve false si READY estaba vacía.
func (s *Service) PlanificadorCortoPlazo() bool {
	if len(s.Planificador.ReadyQueue) == 0 {
		return false
	}
	m := s.Planificador.ReadyQueue[0]
	s.Planificador.ReadyQueue = s.Planificador.ReadyQueue[1:]
	s.ejecutar(m)
	return true
}

func (s *Service) ejecutar(m *cpu.Maquina) {
	if m.Detenida() || m.Bloqueada() {
		return
	}
	s.transicion(m, internal.EstadoExec)
	s.ejecutando = m
	s.Log.Debug("Máquina en ejecución",
		log.IntAttr("pid", m.ID()),
		log.HexAttr("pc", m.PC),
	)

	// al terminar la rebanada el motor la vuelve a encolar si sigue lista
	m.Run()
	s.ejecutando = nil

	if !m.Detenida() && m.Bloqueada() {
		s.transicion(m, internal.EstadoBloqueado)
		s.Planificador.BlockQueue = append(s.Planificador.BlockQueue, m)
	}
}

// Ejecutando devuelve la máquina que tiene la CPU, o nil.
func (s *Service) Ejecutando() *cpu.Maquina {
	return s.ejecutando
}
