package internal

import (
	"time"

	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fd"
)

const (
	EstadoNew       Estado = "NEW"
	EstadoReady     Estado = "READY"
	EstadoExec      Estado = "EXEC"
	EstadoBloqueado Estado = "BLOCKED"
	EstadoExit      Estado = "EXIT"
)

type Estado string

type EstadoTiempo struct {
	TiempoInicio    time.Time     `json:"tiempo_inicio"`
	TiempoAcumulado time.Duration `json:"tiempo"`
}

// PCB lleva las métricas de planificación de un proceso.
type PCB struct {
	PID            int                      `json:"pid"`
	Estado         Estado                   `json:"estado"`
	MetricasEstado map[Estado]int           `json:"metricas_estado"`
	MetricasTiempo map[Estado]*EstadoTiempo `json:"metricas_tiempo"`
}

func NuevoPCB(pid int) *PCB {
	return &PCB{
		PID:            pid,
		Estado:         EstadoNew,
		MetricasEstado: map[Estado]int{EstadoNew: 1},
		MetricasTiempo: map[Estado]*EstadoTiempo{EstadoNew: {TiempoInicio: time.Now()}},
	}
}

// Transicion cierra el tiempo del estado actual y abre el del nuevo.
func (p *PCB) Transicion(nuevo Estado) {
	ahora := time.Now()
	if t := p.MetricasTiempo[p.Estado]; t != nil {
		t.TiempoAcumulado += ahora.Sub(t.TiempoInicio)
	}
	t := p.MetricasTiempo[nuevo]
	if t == nil {
		t = &EstadoTiempo{}
		p.MetricasTiempo[nuevo] = t
	}
	t.TiempoInicio = ahora
	p.MetricasEstado[nuevo]++
	p.Estado = nuevo
}

// Proceso es el estado de sistema operativo de una máquina: descriptores, directorio actual e hijos.
type Proceso struct {
	PID      int
	Maquina  *cpu.Maquina
	FDs      *fd.Tabla
	Cwd      string
	Programa string
	Args     []string

	Hijos        map[int]*Proceso
	Terminado    bool
	CodigoSalida int
	// Senal es la señal que terminó al proceso, 0 si salió con exit.
	Senal int

	// fin del nanosleep en curso
	despertarEn time.Time
	// wait4 bloqueado esperando a cualquier hijo
	esperaHijo *cpu.Bloqueo
	// lo leído por sendfile de un stream secuencial que todavía no se pudo escribir
	envio *envioPendiente
}

type envioPendiente struct {
	entrada, salida uint32
	datos           []byte
}

// EstadoEspera es el status que devuelve wait4.
func (p *Proceso) EstadoEspera() uint32 {
	if p.Senal != 0 {
		return uint32(p.Senal & 0x7f)
	}
	return uint32(p.CodigoSalida&0xff) << 8
}
