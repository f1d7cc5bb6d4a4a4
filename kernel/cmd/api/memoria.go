package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sisoputnfrba/mips-golang/kernel/internal"
)

// LeerMemoria devuelve ?largo bytes desde ?direccion. Las páginas ausentes se leen como cero y no se crean.
func (h *Handler) LeerMemoria(w http.ResponseWriter, r *http.Request) {
	pid, err := pidDe(r)
	if err != nil {
		h.responderError(w, http.StatusBadRequest, err)
		return
	}
	dir, err := strconv.ParseUint(r.URL.Query().Get("direccion"), 0, 32)
	if err != nil {
		h.responderError(w, http.StatusBadRequest, fmt.Errorf("direccion inválida: %w", err))
		return
	}
	largo, err := strconv.Atoi(r.URL.Query().Get("largo"))
	if err != nil || largo < 0 || largo > maxLecturaMemoria {
		h.responderError(w, http.StatusBadRequest, fmt.Errorf("largo inválido, el máximo es %d", maxLecturaMemoria))
		return
	}

	var datos []byte
	if h.conProcesoVivo(w, r, pid, func(p *internal.Proceso) {
		datos = p.Maquina.Mem.Leer(uint32(dir), largo)
	}) {
		h.responderJSON(w, http.StatusOK, Memoria{Direccion: uint32(dir), Datos: datos})
	}
}

// EscribirMemoria copia los datos del cuerpo en la memoria del proceso. Respeta el copy-on-write.
func (h *Handler) EscribirMemoria(w http.ResponseWriter, r *http.Request) {
	pid, err := pidDe(r)
	if err != nil {
		h.responderError(w, http.StatusBadRequest, err)
		return
	}
	var pedido Memoria
	if err = json.NewDecoder(http.MaxBytesReader(w, r.Body, 2*maxLecturaMemoria)).Decode(&pedido); err != nil {
		h.responderError(w, http.StatusBadRequest, fmt.Errorf("pedido inválido: %w", err))
		return
	}

	if h.conProcesoVivo(w, r, pid, func(p *internal.Proceso) {
		p.Maquina.Mem.Escribir(pedido.Direccion, pedido.Datos)
	}) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// conProcesoVivo corre f sobre el proceso pid si todavía no terminó. Si no puede, responde el error y devuelve false.
func (h *Handler) conProcesoVivo(w http.ResponseWriter, r *http.Request, pid int, f func(p *internal.Proceso)) bool {
	var (
		errProceso error
		status     int
	)
	ok := h.sincronizar(w, r, func() {
		p, encontrado := h.Kernel.Proceso(pid)
		switch {
		case !encontrado:
			errProceso, status = fmt.Errorf("no existe el proceso %d", pid), http.StatusNotFound
		case p.Terminado:
			errProceso, status = errors.New("el proceso ya terminó"), http.StatusConflict
		default:
			f(p)
		}
	})
	if !ok {
		return false
	}
	if errProceso != nil {
		h.responderError(w, status, errProceso)
		return false
	}
	return true
}
