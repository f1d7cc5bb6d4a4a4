// Package api es el frente HTTP del simulador: crea y mata procesos, inspecciona su memoria
// y alimenta la consola.
package api

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/kernel/internal"
	"github.com/sisoputnfrba/mips-golang/kernel/internal/planificadores"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fs"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/remotefs"
	"github.com/sisoputnfrba/mips-golang/utils/log"
)

// RutaTTY es el alias de la consola que abren los programas que buscan su terminal.
const RutaTTY = "/dev/tty"

type Handler struct {
	Log          *slog.Logger
	Config       *internal.Config
	Kernel       *internal.Kernel
	Planificador *planificadores.Service
	FS           *fs.MemFS
	Consola      *fs.Consola
}

// NewHandler arma el simulador completo según cfg: motor, planificador, sistema de archivos con la
// consola escribiendo en salida y los montajes remotos, y el kernel encima. No arranca el ciclo del
// planificador: eso lo hace quien levanta el servidor.
func NewHandler(cfg *internal.Config, salida io.Writer, logger *slog.Logger) (*Handler, error) {
	motor := cpu.NuevoMotor(cfg.ConfigMotor(), logger)
	s := planificadores.NewPlanificador(motor, logger)

	memfs := fs.NuevoMemFS()
	consola := fs.NuevaConsola(salida)
	for _, ruta := range []string{internal.RutaConsola, RutaTTY} {
		if err := memfs.Dispositivo(ruta, func() fs.Stream { return consola }); err != nil {
			return nil, fmt.Errorf("crear %s: %w", ruta, err)
		}
	}

	var sistema fs.Sistema = memfs
	if len(cfg.RemoteMounts) > 0 {
		remoto := remotefs.New(memfs, s.Despertar, logger)
		for _, m := range cfg.RemoteMounts {
			remoto.Montar(m.Punto, m.URL)
		}
		sistema = remoto
	}

	return &Handler{
		Log:          logger,
		Config:       cfg,
		Kernel:       internal.NewKernel(motor, sistema, s, logger),
		Planificador: s,
		FS:           memfs,
		Consola:      consola,
	}, nil
}

// Precargar copia archivos del host al sistema de archivos del simulador. Se llama antes de arrancar
// el planificador.
func (h *Handler) Precargar(archivos []internal.Precarga) error {
	for _, a := range archivos {
		datos, err := os.ReadFile(a.Origen)
		if err != nil {
			return fmt.Errorf("precargar %s: %w", a.Origen, err)
		}
		if err = h.FS.MkdirTodo(path.Dir(a.Destino)); err != nil {
			return fmt.Errorf("precargar %s: %w", a.Destino, err)
		}
		if err = h.FS.EscribirArchivo(a.Destino, datos, 0o755); err != nil {
			return fmt.Errorf("precargar %s: %w", a.Destino, err)
		}
		h.Log.Debug("Archivo precargado",
			log.StringAttr("origen", a.Origen),
			log.StringAttr("destino", a.Destino),
			log.IntAttr("bytes", len(datos)),
		)
	}
	return nil
}
