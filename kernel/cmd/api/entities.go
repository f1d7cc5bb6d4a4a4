package api

import (
	"github.com/sisoputnfrba/mips-golang/kernel/internal"
	"github.com/sisoputnfrba/mips-golang/kernel/internal/planificadores"
)

// maxLecturaMemoria acota lo que se puede leer de una vez por GET /procesos/{pid}/memoria.
const maxLecturaMemoria = 1 << 16

// maxEntradaConsola acota el cuerpo de POST /consola.
const maxEntradaConsola = 1 << 20

type PedidoProceso struct {
	Programa string   `json:"programa"`
	Args     []string `json:"args,omitempty"`
	Env      []string `json:"env,omitempty"`
}

type RespuestaProceso struct {
	PID           int           `json:"pid"`
	PPID          int           `json:"ppid"`
	Programa      string        `json:"programa"`
	Args          []string      `json:"args"`
	Estado        string        `json:"estado"`
	Terminado     bool          `json:"terminado"`
	CodigoSalida  int           `json:"codigo_salida"`
	Senal         int           `json:"senal,omitempty"`
	Instrucciones uint64        `json:"instrucciones"`
	Falla         string        `json:"falla,omitempty"`
	Descriptores  []int         `json:"descriptores,omitempty"`
	PCB           *internal.PCB `json:"pcb,omitempty"`
}

// Memoria viaja con los datos en base64, como serializa encoding/json a []byte.
type Memoria struct {
	Direccion uint32 `json:"direccion"`
	Datos     []byte `json:"datos"`
}

type RespuestaDump struct {
	Archivo string `json:"archivo"`
}

type RespuestaMetricas struct {
	Procesos     int                    `json:"procesos"`
	Planificador planificadores.Resumen `json:"planificador"`
	Cache        any                    `json:"cache"`
}

type RespuestaError struct {
	Error string `json:"error"`
}
