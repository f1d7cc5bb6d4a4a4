package planificadores

import (
	"fmt"
	"sort"

	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/kernel/internal"
)

func (s *Service) alIniciar(m *cpu.Maquina) {
	s.pcbs[m.ID()] = internal.NuevoPCB(m.ID())
}

func (s *Service) pcb(m *cpu.Maquina) *internal.PCB {
	pcb, ok := s.pcbs[m.ID()]
	if !ok {
		pcb = internal.NuevoPCB(m.ID())
		s.pcbs[m.ID()] = pcb
	}
	return pcb
}

func (s *Service) transicion(m *cpu.Maquina, nuevo internal.Estado) {
	pcb := s.pcb(m)
	if pcb.Estado == nuevo {
		return
	}
	s.Log.Info(fmt.Sprintf("## (%d) Pasa del estado %s al estado %s", pcb.PID, pcb.Estado, nuevo))
	pcb.Transicion(nuevo)
}

// alDetener saca a la máquina de las colas y deja su PCB en EXIT con las métricas finales.
func (s *Service) alDetener(m *cpu.Maquina) {
	s.Planificador.ReadyQueue, _ = removerDeCola(s.Planificador.ReadyQueue, m)
	s.Planificador.BlockQueue, _ = removerDeCola(s.Planificador.BlockQueue, m)

	s.transicion(m, internal.EstadoExit)
	pcb := s.pcbs[m.ID()]
	delete(s.pcbs, m.ID())

	s.Log.Info(fmt.Sprintf("## (%d) - Métricas de estado: NEW %d %d, READY %d %d, EXEC %d %d, BLOCKED %d %d, EXIT %d %d",
		pcb.PID,
		pcb.MetricasEstado[internal.EstadoNew], milisegundos(pcb, internal.EstadoNew),
		pcb.MetricasEstado[internal.EstadoReady], milisegundos(pcb, internal.EstadoReady),
		pcb.MetricasEstado[internal.EstadoExec], milisegundos(pcb, internal.EstadoExec),
		pcb.MetricasEstado[internal.EstadoBloqueado], milisegundos(pcb, internal.EstadoBloqueado),
		pcb.MetricasEstado[internal.EstadoExit], milisegundos(pcb, internal.EstadoExit),
	))

	s.Planificador.ExitQueue = append(s.Planificador.ExitQueue, pcb)
	if len(s.Planificador.ExitQueue) > maxFinalizados {
		s.Planificador.ExitQueue = s.Planificador.ExitQueue[len(s.Planificador.ExitQueue)-maxFinalizados:]
	}
}

func milisegundos(pcb *internal.PCB, e internal.Estado) int64 {
	t := pcb.MetricasTiempo[e]
	if t == nil {
		return 0
	}
	return t.TiempoAcumulado.Milliseconds()
}

// PCB devuelve una copia del PCB de pid, vivo o entre los últimos finalizados.
func (s *Service) PCB(pid int) (internal.PCB, bool) {
	if pcb, ok := s.pcbs[pid]; ok {
		return copiar(pcb), true
	}
	for i := len(s.Planificador.ExitQueue) - 1; i >= 0; i-- {
		if pcb := s.Planificador.ExitQueue[i]; pcb.PID == pid {
			return copiar(pcb), true
		}
	}
	return internal.PCB{}, false
}

// PCBs lista por pid los PCB de las máquinas vivas.
func (s *Service) PCBs() []internal.PCB {
	lista := make([]internal.PCB, 0, len(s.pcbs))
	for _, pcb := range s.pcbs {
		lista = append(lista, copiar(pcb))
	}
	sort.Slice(lista, func(i, j int) bool { return lista[i].PID < lista[j].PID })
	return lista
}

// Resumen cuenta las máquinas en cada cola.
type Resumen struct {
	Ready       int `json:"ready"`
	Blocked     int `json:"blocked"`
	Finalizados int `json:"finalizados"`
}

func (s *Service) Resumen() Resumen {
	return Resumen{
		Ready:       len(s.Planificador.ReadyQueue),
		Blocked:     len(s.Planificador.BlockQueue),
		Finalizados: len(s.Planificador.ExitQueue),
	}
}

func copiar(pcb *internal.PCB) internal.PCB {
	c := *pcb
	c.MetricasEstado = make(map[internal.Estado]int, len(pcb.MetricasEstado))
	for e, n := range pcb.MetricasEstado {
		c.MetricasEstado[e] = n
	}
	c.MetricasTiempo = make(map[internal.Estado]*internal.EstadoTiempo, len(pcb.MetricasTiempo))
	for e, t := range pcb.MetricasTiempo {
		tc := *t
		c.MetricasTiempo[e] = &tc
	}
	return c
}
