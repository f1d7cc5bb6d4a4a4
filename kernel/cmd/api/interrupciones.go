package api

import (
	"fmt"
	"net/http"
)

// FinalizarProceso mata al proceso como si hubiera recibido SIGKILL.
func (h *Handler) FinalizarProceso(w http.ResponseWriter, r *http.Request) {
	pid, err := pidDe(r)
	if err != nil {
		h.responderError(w, http.StatusBadRequest, err)
		return
	}

	var errTerminar error
	if !h.sincronizar(w, r, func() { errTerminar = h.Kernel.Terminar(pid) }) {
		return
	}
	if errTerminar != nil {
		h.responderError(w, statusDe(errTerminar), fmt.Errorf("proceso %d: %w", pid, errTerminar))
		return
	}

	h.Log.Info(fmt.Sprintf("## (%d) - Finalizado por pedido externo", pid))
	w.WriteHeader(http.StatusNoContent)
}
