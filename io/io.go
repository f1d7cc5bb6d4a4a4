package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/sisoputnfrba/mips-golang/io/cmd/api"
	"github.com/sisoputnfrba/mips-golang/io/internal"
	"github.com/sisoputnfrba/mips-golang/kernel/pkg/memoria"
	"github.com/sisoputnfrba/mips-golang/utils/log"
)

const (
	configFilePath = "./configs/config.json"
)

// Uso:
//
//	io [programa [args...]]       crea programa en el kernel y le reenvía la entrada estándar
//	io memoria <pid> <dir> <largo> muestra memoria del proceso
//	io dump <pid>                 pide un dump de memoria del proceso
func main() {
	cfg, err := internal.CargarConfig(configFilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error al cargar la configuración: %v\n", err)
		os.Exit(1)
	}
	h := api.NewHandler(cfg, log.BuildLogger(cfg.LogLevel))

	if len(os.Args) > 1 && (os.Args[1] == "memoria" || os.Args[1] == "dump") {
		if err = inspeccionar(memoria.NewMemoria(cfg.IpKernel, cfg.PortKernel, h.Log), os.Args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if len(os.Args) > 1 {
		if _, err = h.CrearProceso(os.Args[1], os.Args[1:], os.Environ()); err != nil {
			h.Log.Error("No se pudo crear el proceso", log.ErrAttr(err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err = h.Reenviar(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		h.Log.Error("Error reenviando la entrada", log.ErrAttr(err))
		os.Exit(1)
	}
}

func inspeccionar(m *memoria.Memoria, args []string) error {
	numeros := make([]uint64, 0, len(args)-1)
	for _, a := range args[1:] {
		n, err := strconv.ParseUint(a, 0, 32)
		if err != nil {
			return fmt.Errorf("argumento inválido %q: %w", a, err)
		}
		numeros = append(numeros, n)
	}

	switch {
	case args[0] == "dump" && len(numeros) == 1:
		archivo, err := m.DumpProceso(int(numeros[0]))
		if err != nil {
			return err
		}
		fmt.Println(archivo)
	case args[0] == "memoria" && len(numeros) == 3:
		datos, err := m.Leer(int(numeros[0]), uint32(numeros[1]), int(numeros[2]))
		if err != nil {
			return err
		}
		fmt.Print(hex.Dump(datos))
	default:
		return errors.New("uso: io memoria <pid> <dir> <largo> | io dump <pid>")
	}
	return nil
}
