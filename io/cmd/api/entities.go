package api

type PedidoProceso struct {
	Programa string   `json:"programa"`
	Args     []string `json:"args,omitempty"`
	Env      []string `json:"env,omitempty"`
}

// Proceso es lo que la terminal usa de la respuesta del kernel.
type Proceso struct {
	PID          int    `json:"pid"`
	Programa     string `json:"programa"`
	Estado       string `json:"estado"`
	Terminado    bool   `json:"terminado"`
	CodigoSalida int    `json:"codigo_salida"`
	Senal        int    `json:"senal"`
}

type respuestaError struct {
	Error string `json:"error"`
}
