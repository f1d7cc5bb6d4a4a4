package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fs"
	"github.com/sisoputnfrba/mips-golang/utils/log"
)

func (h *Handler) responderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Error("Error al codificar la respuesta", log.ErrAttr(err))
	}
}

func (h *Handler) responderError(w http.ResponseWriter, status int, err error) {
	h.Log.Debug("Pedido rechazado",
		log.IntAttr("status", status),
		log.ErrAttr(err),
	)
	h.responderJSON(w, status, RespuestaError{Error: err.Error()})
}

// statusDe traduce los errno que pueden salir de las operaciones del kernel.
func statusDe(err error) int {
	var e fs.Errno
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e {
	case fs.ENOENT, fs.ESRCH:
		return http.StatusNotFound
	case fs.EACCES, fs.EPERM:
		return http.StatusForbidden
	case fs.ENOEXEC, fs.EINVAL, fs.ENOTDIR, fs.EISDIR:
		return http.StatusUnprocessableEntity
	case fs.ENOMEM, fs.EMFILE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func pidDe(r *http.Request) (int, error) {
	pid, err := strconv.Atoi(chi.URLParam(r, "pid"))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid inválido %q", chi.URLParam(r, "pid"))
	}
	return pid, nil
}

// sincronizar corre f en la goroutine del planificador. Si el pedido se cancela antes responde 503 y devuelve false.
func (h *Handler) sincronizar(w http.ResponseWriter, r *http.Request, f func()) bool {
	if err := h.Planificador.Sincronizar(r.Context(), f); err != nil {
		h.responderError(w, http.StatusServiceUnavailable, err)
		return false
	}
	return true
}
