package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router arma las rutas del kernel.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/procesos", func(r chi.Router) {
		r.Post("/", h.CrearProceso)
		r.Get("/", h.ListarProcesos)
		r.Route("/{pid}", func(r chi.Router) {
			r.Get("/", h.ConsultarProceso)
			r.Delete("/", h.FinalizarProceso)
			r.Get("/memoria", h.LeerMemoria)
			r.Post("/memoria", h.EscribirMemoria)
			r.Post("/dump", h.DumpMemoria)
		})
	})
	r.Post("/consola", h.AlimentarConsola)
	r.Get("/metricas", h.Metricas)
	return r
}
