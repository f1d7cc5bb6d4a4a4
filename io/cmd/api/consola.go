package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/sisoputnfrba/mips-golang/utils/log"
)

// Enviar agrega datos a la entrada de la consola del simulador.
func (h *Handler) Enviar(datos []byte) error {
	return h.postConsola(h.url("/consola"), datos)
}

// Cerrar le avisa a la consola que no viene más entrada.
func (h *Handler) Cerrar() error {
	return h.postConsola(h.url("/consola?eof=true"), nil)
}

func (h *Handler) postConsola(url string, datos []byte) error {
	resp, err := h.HttpClient.Post(url, "application/octet-stream", bytes.NewReader(datos))
	if err != nil {
		h.Log.Error("Error enviando a la consola",
			log.ErrAttr(err),
			log.StringAttr("ip", h.Config.IpKernel),
			log.IntAttr("puerto", h.Config.PortKernel),
		)
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusNoContent {
		return errorDe(resp)
	}
	return nil
}

// Reenviar copia r a la consola en bloques de a lo sumo tam_bloque bytes hasta EOF, y ahí la cierra.
func (h *Handler) Reenviar(ctx context.Context, r io.Reader) error {
	buf := make([]byte, h.Config.TamBloque)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if errEnvio := h.Enviar(buf[:n]); errEnvio != nil {
				return errEnvio
			}
			h.Log.Debug("Entrada reenviada", log.IntAttr("bytes", n))
		}
		if errors.Is(err, io.EOF) {
			return h.Cerrar()
		}
		if err != nil {
			return err
		}
	}
}
