// Package api es la terminal remota del simulador: crea procesos en el kernel y le reenvía la entrada
// estándar a la consola.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sisoputnfrba/mips-golang/io/internal"
)

type Handler struct {
	Log        *slog.Logger
	Config     *internal.Config
	HttpClient *http.Client
}

func NewHandler(cfg *internal.Config, logger *slog.Logger) *Handler {
	return &Handler{
		Config: cfg,
		Log:    logger,
		HttpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}
