package api

import (
	"net/http"

	"github.com/sisoputnfrba/mips-golang/kernel/internal"
	"github.com/sisoputnfrba/mips-golang/utils/log"
)

// Metricas resume el estado de las colas y de la caché de código traducido.
func (h *Handler) Metricas(w http.ResponseWriter, r *http.Request) {
	var m RespuestaMetricas
	ok := h.sincronizar(w, r, func() {
		m = RespuestaMetricas{
			Procesos:     len(h.Kernel.Procesos()),
			Planificador: h.Planificador.Resumen(),
			Cache:        h.Kernel.Motor.MetricasCache(),
		}
	})
	if ok {
		h.responderJSON(w, http.StatusOK, m)
	}
}

// DumpMemoria vuelca la memoria del proceso en el directorio dump_path de la configuración.
func (h *Handler) DumpMemoria(w http.ResponseWriter, r *http.Request) {
	pid, err := pidDe(r)
	if err != nil {
		h.responderError(w, http.StatusBadRequest, err)
		return
	}

	var (
		archivo string
		errDump error
	)
	if !h.conProcesoVivo(w, r, pid, func(p *internal.Proceso) {
		archivo, errDump = h.Planificador.RealizarDumpMemory(p.Maquina, h.Config.DumpPath)
	}) {
		return
	}
	if errDump != nil {
		h.Log.Error("Error en el dump de memoria",
			log.IntAttr("pid", pid),
			log.ErrAttr(errDump),
		)
		h.responderError(w, http.StatusInternalServerError, errDump)
		return
	}
	h.responderJSON(w, http.StatusOK, RespuestaDump{Archivo: archivo})
}
