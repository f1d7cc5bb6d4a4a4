package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sisoputnfrba/mips-golang/kernel/cmd/api"
	"github.com/sisoputnfrba/mips-golang/kernel/internal"
	"github.com/sisoputnfrba/mips-golang/utils/log"
)

func main() {
	archivoConfig := "configs/config.json"
	if len(os.Args) > 1 {
		archivoConfig = os.Args[1]
	}

	cfg, err := internal.CargarConfig(archivoConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error al cargar la configuración: %v\n", err)
		os.Exit(1)
	}
	logger := log.BuildLogger(cfg.LogLevel)

	h, err := api.NewHandler(cfg, os.Stdout, logger)
	if err != nil {
		logger.Error("Error al armar el simulador", log.ErrAttr(err))
		os.Exit(1)
	}
	if err = h.Precargar(cfg.PreloadFiles); err != nil {
		logger.Error("Error al precargar archivos", log.ErrAttr(err))
		os.Exit(1)
	}

	// el planificador todavía no corre, así que el primer proceso se crea desde acá
	if cfg.InitProgram != "" {
		if _, err = h.Kernel.Spawn(cfg.InitProgram, cfg.ArgsInit(), cfg.InitEnv); err != nil {
			logger.Error("No se pudo arrancar el primer proceso",
				log.StringAttr("programa", cfg.InitProgram),
				log.ErrAttr(err),
			)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fin := make(chan error, 1)
	go func() { fin <- h.Planificador.Ejecutar(ctx) }()

	servidor := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.IpKernel, cfg.PortKernel),
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		apagar, cancelar := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelar()
		_ = servidor.Shutdown(apagar)
	}()

	logger.Info("Kernel escuchando",
		log.StringAttr("direccion", servidor.Addr),
	)
	if err = servidor.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Error al levantar el servidor", log.ErrAttr(err))
		stop()
	}

	if err = <-fin; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("El planificador terminó con error", log.ErrAttr(err))
	}
}
