// Package internal tiene la configuración de la terminal remota del simulador.
package internal

import (
	"fmt"

	"github.com/sisoputnfrba/mips-golang/utils/config"
)

// TamBloquePorDefecto es cuánto de la entrada estándar se junta como máximo por envío a la consola.
const TamBloquePorDefecto = 4096

type Config struct {
	IpKernel   string `json:"ip_kernel"`
	PortKernel int    `json:"port_kernel"`
	LogLevel   string `json:"log_level"`
	TamBloque  int    `json:"tam_bloque"`
}

// CargarConfig lee la configuración de la terminal.
func CargarConfig(filePath string) (*Config, error) {
	c := &Config{}
	if err := config.CargarConfiguracion(filePath, c); err != nil {
		return nil, err
	}
	if c.IpKernel == "" || c.PortKernel <= 0 || c.PortKernel > 65535 {
		return nil, fmt.Errorf("dirección del kernel inválida: %s:%d", c.IpKernel, c.PortKernel)
	}
	if c.TamBloque <= 0 {
		c.TamBloque = TamBloquePorDefecto
	}
	return c, nil
}
