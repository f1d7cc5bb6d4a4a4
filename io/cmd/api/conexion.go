package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sisoputnfrba/mips-golang/utils/log"
)

// ErrProcesoInexistente es el 404 del kernel al consultar un pid.
var ErrProcesoInexistente = errors.New("proceso inexistente")

func (h *Handler) url(recurso string) string {
	return fmt.Sprintf("http://%s:%d%s", h.Config.IpKernel, h.Config.PortKernel, recurso)
}

// CrearProceso le pide al kernel que arranque programa y devuelve el pid.
func (h *Handler) CrearProceso(programa string, args, env []string) (int, error) {
	body, err := json.Marshal(PedidoProceso{Programa: programa, Args: args, Env: env})
	if err != nil {
		return 0, err
	}

	resp, err := h.HttpClient.Post(h.url("/procesos"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		h.Log.Error("Error enviando el pedido de proceso",
			log.ErrAttr(err),
			log.StringAttr("ip", h.Config.IpKernel),
			log.IntAttr("puerto", h.Config.PortKernel),
		)
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusCreated {
		return 0, errorDe(resp)
	}
	var p Proceso
	if err = json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return 0, fmt.Errorf("decodificar proceso: %w", err)
	}

	h.Log.Info(fmt.Sprintf("## (%d) Proceso creado", p.PID),
		log.StringAttr("programa", programa),
	)
	return p.PID, nil
}

// ConsultarProceso trae el estado de pid. Un proceso que ya terminó y nadie espera da ErrProcesoInexistente.
func (h *Handler) ConsultarProceso(pid int) (Proceso, error) {
	resp, err := h.HttpClient.Get(h.url(fmt.Sprintf("/procesos/%d", pid)))
	if err != nil {
		return Proceso{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Proceso{}, fmt.Errorf("pid %d: %w", pid, ErrProcesoInexistente)
	default:
		return Proceso{}, errorDe(resp)
	}
	var p Proceso
	if err = json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Proceso{}, fmt.Errorf("decodificar proceso: %w", err)
	}
	return p, nil
}

func errorDe(resp *http.Response) error {
	datos, _ := io.ReadAll(resp.Body)
	var r respuestaError
	if json.Unmarshal(datos, &r) == nil && r.Error != "" {
		return fmt.Errorf("el kernel respondió %d: %s", resp.StatusCode, r.Error)
	}
	return fmt.Errorf("el kernel respondió %d", resp.StatusCode)
}
