package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sisoputnfrba/mips-golang/kernel/internal"
	"github.com/sisoputnfrba/mips-golang/utils/log"
)

// CrearProceso carga un programa del sistema de archivos del simulador en un proceso nuevo.
func (h *Handler) CrearProceso(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var pedido PedidoProceso
	if err := json.NewDecoder(r.Body).Decode(&pedido); err != nil {
		h.Log.ErrorContext(ctx, "Error al decodificar el pedido de proceso",
			log.ErrAttr(err),
		)
		h.responderError(w, http.StatusBadRequest, fmt.Errorf("pedido inválido: %w", err))
		return
	}
	if pedido.Programa == "" {
		h.responderError(w, http.StatusBadRequest, errors.New("falta el programa"))
		return
	}

	var (
		respuesta RespuestaProceso
		err       error
	)
	ok := h.sincronizar(w, r, func() {
		var p *internal.Proceso
		p, err = h.Kernel.Spawn(pedido.Programa, pedido.Args, pedido.Env)
		if err == nil {
			respuesta = h.vista(p, false)
		}
	})
	if !ok {
		return
	}
	if err != nil {
		h.Log.WarnContext(ctx, "No se pudo crear el proceso",
			log.StringAttr("programa", pedido.Programa),
			log.ErrAttr(err),
		)
		h.responderError(w, statusDe(err), err)
		return
	}
	h.responderJSON(w, http.StatusCreated, respuesta)
}

func (h *Handler) ListarProcesos(w http.ResponseWriter, r *http.Request) {
	var lista []RespuestaProceso
	ok := h.sincronizar(w, r, func() {
		procesos := h.Kernel.Procesos()
		lista = make([]RespuestaProceso, 0, len(procesos))
		for _, p := range procesos {
			lista = append(lista, h.vista(p, false))
		}
	})
	if ok {
		h.responderJSON(w, http.StatusOK, lista)
	}
}

func (h *Handler) ConsultarProceso(w http.ResponseWriter, r *http.Request) {
	pid, err := pidDe(r)
	if err != nil {
		h.responderError(w, http.StatusBadRequest, err)
		return
	}

	var (
		respuesta  RespuestaProceso
		encontrado bool
	)
	ok := h.sincronizar(w, r, func() {
		var p *internal.Proceso
		if p, encontrado = h.Kernel.Proceso(pid); encontrado {
			respuesta = h.vista(p, true)
		}
	})
	if !ok {
		return
	}
	if !encontrado {
		h.responderError(w, http.StatusNotFound, fmt.Errorf("no existe el proceso %d", pid))
		return
	}
	h.responderJSON(w, http.StatusOK, respuesta)
}

// vista arma la respuesta de un proceso. Corre en la goroutine del planificador.
func (h *Handler) vista(p *internal.Proceso, detalle bool) RespuestaProceso {
	m := p.Maquina
	v := RespuestaProceso{
		PID:           p.PID,
		PPID:          1,
		Programa:      p.Programa,
		Args:          p.Args,
		Estado:        string(internal.EstadoExit),
		Terminado:     p.Terminado,
		CodigoSalida:  p.CodigoSalida,
		Senal:         p.Senal,
		Instrucciones: m.Instrucciones(),
	}
	if pm := m.Padre(); pm != nil {
		v.PPID = pm.ID()
	}
	if err := m.Falla(); err != nil {
		v.Falla = err.Error()
	}

	pcb, ok := h.Planificador.PCB(p.PID)
	if ok {
		v.Estado = string(pcb.Estado)
	}
	if detalle {
		if ok {
			v.PCB = &pcb
		}
		if !p.Terminado {
			v.Descriptores = p.FDs.Numeros()
		}
	}
	return v
}
