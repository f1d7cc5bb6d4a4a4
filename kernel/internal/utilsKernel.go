package internal

import (
	"fmt"
	"time"

	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/utils/config"
)

// DumpPathPorDefecto es el directorio de los dumps de memoria cuando la configuración no dice otro.
const DumpPathPorDefecto = "dumps"

// Montaje publica bajo Punto los archivos que se bajan de URL.
type Montaje struct {
	Punto string `json:"punto"`
	URL   string `json:"url"`
}

// Precarga copia un archivo del host al sistema de archivos del simulador al arrancar.
type Precarga struct {
	Origen  string `json:"origen"`
	Destino string `json:"destino"`
}

type Config struct {
	IpKernel             string     `json:"ip_kernel"`
	PortKernel           int        `json:"port_kernel"`
	LogLevel             string     `json:"log_level"`
	TimeSliceMs          int        `json:"time_slice_ms"`
	JIT                  bool       `json:"jit"`
	JITStepBudget        int        `json:"jit_step_budget"`
	CodeCacheEntries     int        `json:"code_cache_entries"`
	CodeCacheReplacement string     `json:"code_cache_replacement"`
	RemoteMounts         []Montaje  `json:"remote_mounts"`
	PreloadFiles         []Precarga `json:"preload_files"`
	InitProgram          string     `json:"init_program"`
	InitArgs             []string   `json:"init_args"`
	InitEnv              []string   `json:"init_env"`
	DumpPath             string     `json:"dump_path"`
}

// CargarConfig lee el archivo de configuración del kernel.
func CargarConfig(filePath string) (*Config, error) {
	c := &Config{}
	if err := config.CargarConfiguracion(filePath, c); err != nil {
		return nil, err
	}
	if c.PortKernel <= 0 || c.PortKernel > 65535 {
		return nil, fmt.Errorf("port_kernel inválido: %d", c.PortKernel)
	}
	if c.DumpPath == "" {
		c.DumpPath = DumpPathPorDefecto
	}
	return c, nil
}

// ConfigMotor traduce la configuración a los parámetros de ejecución de la CPU.
func (c *Config) ConfigMotor() cpu.Config {
	cfg := cpu.ConfigPorDefecto()
	cfg.JIT = c.JIT
	if c.TimeSliceMs > 0 {
		cfg.RebanadaTiempo = time.Duration(c.TimeSliceMs) * time.Millisecond
	}
	if c.JITStepBudget > 0 {
		cfg.PresupuestoSaltos = c.JITStepBudget
	}
	if c.CodeCacheEntries != 0 {
		cfg.CacheEntradas = c.CodeCacheEntries
	}
	if c.CodeCacheReplacement != "" {
		cfg.CacheAlgoritmo = c.CodeCacheReplacement
	}
	return cfg
}

// ArgsInit devuelve el argv del primer proceso; sin init_args es solo el nombre del programa.
func (c *Config) ArgsInit() []string {
	if len(c.InitArgs) == 0 {
		return []string{c.InitProgram}
	}
	return c.InitArgs
}
