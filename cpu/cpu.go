// Package cpu ejecuta código MIPS32 big-endian de usuario: el intérprete, el recompilador por página
// y el protocolo de bloqueo de syscalls. El kernel registra sus syscalls y hooks sobre un Motor.
package cpu

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/sisoputnfrba/mips-golang/cpu/internal/cache"
	"github.com/sisoputnfrba/mips-golang/memoria"
	uniqueid "github.com/sisoputnfrba/mips-golang/utils/unique-id"
)

const (
	RebanadaPorDefecto          = 250 * time.Millisecond
	PresupuestoSaltosPorDefecto = 100
	EntradasCachePorDefecto     = 4096
)

// Config son los parámetros de ejecución compartidos por todas las máquinas de un Motor.
type Config struct {
	RebanadaTiempo    time.Duration
	JIT               bool
	PresupuestoSaltos int
	CacheEntradas     int
	CacheAlgoritmo    string
}

func ConfigPorDefecto() Config {
	return Config{
		RebanadaTiempo:    RebanadaPorDefecto,
		JIT:               true,
		PresupuestoSaltos: PresupuestoSaltosPorDefecto,
		CacheEntradas:     EntradasCachePorDefecto,
		CacheAlgoritmo:    cache.AlgoritmoLRU,
	}
}

// Planificador recibe las máquinas que quedan listas para ejecutar.
type Planificador interface {
	Encolar(m *Maquina)
}

// Rutina es código traducido que avanza la máquina por su cuenta. Devuelve true si dejó pc/npc
// listos para seguir con otra rutina y false si la próxima instrucción la tiene que interpretar.
type Rutina interface {
	Correr(m *Maquina) bool
}

// RutinaFunc adapta una función a Rutina.
type RutinaFunc func(m *Maquina) bool

func (f RutinaFunc) Correr(m *Maquina) bool {
	return f(m)
}

type syscallRegistrada struct {
	nombre string
	f      SyscallFunc
}

// Motor es el universo de un conjunto de máquinas: tablas de syscalls, hooks, ids y caché de código.
type Motor struct {
	Log    *slog.Logger
	Config Config

	syscalls      map[uint32]syscallRegistrada
	hooksInicio   []func(*Maquina)
	hooksFork     []func(padre, hijo *Maquina)
	hooksDetener  []func(*Maquina)
	maquinas      map[int]*Maquina
	ids           *uniqueid.UniqueID
	codigo        *cache.Cache[*memoria.Pagina, *rutinaPagina]
	precompilados map[string]Rutina
	planificador  Planificador
	trazar        bool
}

func NuevoMotor(cfg Config, logger *slog.Logger) *Motor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RebanadaTiempo <= 0 {
		cfg.RebanadaTiempo = RebanadaPorDefecto
	}
	if cfg.PresupuestoSaltos <= 0 {
		cfg.PresupuestoSaltos = PresupuestoSaltosPorDefecto
	}
	return &Motor{
		Log:           logger,
		Config:        cfg,
		syscalls:      make(map[uint32]syscallRegistrada),
		maquinas:      make(map[int]*Maquina),
		ids:           uniqueid.Init(),
		codigo:        cache.New[*memoria.Pagina, *rutinaPagina](cfg.CacheEntradas, cfg.CacheAlgoritmo, logger),
		precompilados: make(map[string]Rutina),
		trazar:        logger.Enabled(context.Background(), slog.LevelDebug),
	}
}

func (mo *Motor) SetPlanificador(p Planificador) {
	mo.planificador = p
}

// RegistrarSyscall asocia num con f; registrar dos veces el mismo número reemplaza el handler.
func (mo *Motor) RegistrarSyscall(num uint32, nombre string, f SyscallFunc) {
	mo.syscalls[num] = syscallRegistrada{nombre: nombre, f: f}
}

// Syscall devuelve el handler registrado para num.
func (mo *Motor) Syscall(num uint32) (SyscallFunc, bool) {
	s, ok := mo.syscalls[num]
	return s.f, ok
}

func (mo *Motor) NombreSyscall(num uint32) string {
	return mo.syscalls[num].nombre
}

// AlIniciar registra un hook que corre sobre cada máquina nueva (no sobre los hijos de fork).
func (mo *Motor) AlIniciar(f func(*Maquina)) {
	mo.hooksInicio = append(mo.hooksInicio, f)
}

func (mo *Motor) AlForkear(f func(padre, hijo *Maquina)) {
	mo.hooksFork = append(mo.hooksFork, f)
}

func (mo *Motor) AlDetener(f func(*Maquina)) {
	mo.hooksDetener = append(mo.hooksDetener, f)
}

// RegistrarPrecompilado publica una rutina de programa completo bajo nombre.
func (mo *Motor) RegistrarPrecompilado(nombre string, r Rutina) {
	mo.precompilados[nombre] = r
}

func (mo *Motor) Precompilado(nombre string) (Rutina, bool) {
	r, ok := mo.precompilados[nombre]
	return r, ok
}

// NuevaMaquina crea una máquina vacía y corre los hooks de inicio.
func (mo *Motor) NuevaMaquina() *Maquina {
	m := mo.crear()
	for _, h := range mo.hooksInicio {
		h(m)
	}
	return m
}

func (mo *Motor) crear() *Maquina {
	m := &Maquina{
		Mem:     memoria.New(),
		DataEnd: DataEndInicial,
		id:      mo.ids.GetUniqueID(),
		motor:   mo,
	}
	mo.maquinas[m.id] = m
	return m
}

// Maquina busca una máquina viva por id.
func (mo *Motor) Maquina(id int) (*Maquina, bool) {
	m, ok := mo.maquinas[id]
	return m, ok
}

// Maquinas lista las máquinas vivas ordenadas por id.
func (mo *Motor) Maquinas() []*Maquina {
	lista := make([]*Maquina, 0, len(mo.maquinas))
	for _, m := range mo.maquinas {
		lista = append(lista, m)
	}
	sort.Slice(lista, func(i, j int) bool { return lista[i].id < lista[j].id })
	return lista
}

func (mo *Motor) MetricasCache() cache.Metricas {
	return mo.codigo.Metricas()
}

// encolar devuelve la máquina al planificador al terminar una rebanada. Sin planificador
// es quien llamó a Run el que decide si seguir.
func (mo *Motor) encolar(m *Maquina) {
	if mo.planificador != nil {
		mo.planificador.Encolar(m)
	}
}

// reprogramar reanuda una máquina desbloqueada.
func (mo *Motor) reprogramar(m *Maquina) {
	if mo.planificador != nil {
		mo.planificador.Encolar(m)
		return
	}
	m.Run()
}

// rutinaPara devuelve la rutina que corresponde a la página de pc, compilándola si hace falta.
func (mo *Motor) rutinaPara(m *Maquina) Rutina {
	if m.precompilado != nil {
		return m.precompilado
	}
	p := m.Mem.Pagina(m.PC)
	if p == nil {
		return nil
	}
	base := m.PC &^ (memoria.TamPagina - 1)
	if r, ok := mo.codigo.Obtener(p); ok && r.gen == p.Generacion() && r.base == base {
		return r
	}
	r := mo.compilarPagina(p, base)
	mo.codigo.Agregar(p, r)
	return r
}
