package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/sisoputnfrba/mips-golang/utils/log"
)

// AlimentarConsola agrega el cuerpo a la entrada de la consola. Con ?eof=true además la cierra y los
// lectores ven fin de archivo cuando se vacía.
func (h *Handler) AlimentarConsola(w http.ResponseWriter, r *http.Request) {
	datos, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEntradaConsola))
	if err != nil {
		h.responderError(w, http.StatusBadRequest, fmt.Errorf("leer entrada: %w", err))
		return
	}
	eof := r.URL.Query().Get("eof") == "true"

	if !h.sincronizar(w, r, func() {
		// despierta a los lectores bloqueados, por eso corre en el planificador
		if len(datos) > 0 {
			h.Consola.Alimentar(datos)
		}
		if eof {
			h.Consola.CerrarEntrada()
		}
	}) {
		return
	}

	h.Log.Debug("Entrada de consola",
		log.IntAttr("bytes", len(datos)),
		log.AnyAttr("eof", eof),
	)
	w.WriteHeader(http.StatusNoContent)
}
