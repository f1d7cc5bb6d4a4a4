// Package planificadores reparte la única CPU del simulador entre las máquinas listas y lleva
// las métricas de estado de cada proceso.
package planificadores

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/kernel/internal"
)

// maxFinalizados es cuántos PCB terminados se conservan para consultar métricas.
const maxFinalizados = 64

type Planificador struct {
	ReadyQueue []*cpu.Maquina
	BlockQueue []*cpu.Maquina
	ExitQueue  []*internal.PCB
}

// Service es el dueño de las máquinas: solo su goroutine las ejecuta. El resto del programa
// le pasa trabajo con Despertar o Sincronizar.
type Service struct {
	Planificador *Planificador
	Log          *slog.Logger
	Motor        *cpu.Motor

	pcbs       map[int]*internal.PCB
	ejecutando *cpu.Maquina

	mutexTareas sync.Mutex
	tareas      []func()
	avisos      chan struct{}
}

// NewPlanificador se registra como planificador del motor y sigue el ciclo de vida de sus máquinas.
func NewPlanificador(motor *cpu.Motor, logger *slog.Logger) *Service {
	s := &Service{
		Planificador: &Planificador{},
		Log:          logger,
		Motor:        motor,
		pcbs:         make(map[int]*internal.PCB),
		avisos:       make(chan struct{}, 1),
	}

	motor.SetPlanificador(s)
	motor.AlIniciar(s.alIniciar)
	motor.AlForkear(func(_, hijo *cpu.Maquina) { s.alIniciar(hijo) })
	motor.AlDetener(s.alDetener)
	return s
}

// Despertar deja f para que la corra la goroutine del planificador. Se puede llamar desde cualquier goroutine.
func (s *Service) Despertar(f func()) {
	s.mutexTareas.Lock()
	s.tareas = append(s.tareas, f)
	s.mutexTareas.Unlock()
	s.avisar()
}

// Sincronizar corre f en la goroutine del planificador y espera a que termine.
func (s *Service) Sincronizar(ctx context.Context, f func()) error {
	hecho := make(chan struct{})
	s.Despertar(func() {
		defer close(hecho)
		f()
	})
	select {
	case <-hecho:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) avisar() {
	select {
	case s.avisos <- struct{}{}:
	default:
	}
}

// Ejecutar es el ciclo del planificador. Devuelve cuando se cancela ctx.
func (s *Service) Ejecutar(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.Correr() {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.avisos:
		}
	}
}

// Correr atiende las tareas pendientes y le da una rebanada a la primera máquina lista.
// Devuelve false si no había nada que hacer.
func (s *Service) Correr() bool {
	hizoAlgo := s.correrTareas()
	return s.PlanificadorCortoPlazo() || hizoAlgo
}

func (s *Service) correrTareas() bool {
	s.mutexTareas.Lock()
	tareas := s.tareas
	s.tareas = nil
	s.mutexTareas.Unlock()

	for _, f := range tareas {
		f()
	}
	return len(tareas) > 0
}

// removerDeCola saca a m de cola si está.
func removerDeCola(cola []*cpu.Maquina, m *cpu.Maquina) ([]*cpu.Maquina, bool) {
	for i, otra := range cola {
		if otra == m {
			return append(cola[:i], cola[i+1:]...), true
		}
	}
	return cola, false
}
