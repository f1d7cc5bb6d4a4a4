// Package memoria es el cliente HTTP de la memoria de los procesos del kernel: lee, escribe y pide dumps
// a través de /procesos/{pid}/memoria.
package memoria

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sisoputnfrba/mips-golang/utils/log"
)

type Memoria struct {
	IP     string
	Puerto int
	Log    *slog.Logger
}

type bloque struct {
	Direccion uint32 `json:"direccion"`
	Datos     []byte `json:"datos"`
}

func NewMemoria(ip string, puerto int, logger *slog.Logger) *Memoria {
	return &Memoria{
		IP:     ip,
		Puerto: puerto,
		Log:    logger,
	}
}

func (m *Memoria) url(pid int, recurso string) string {
	return fmt.Sprintf("http://%s:%d/procesos/%d/%s", m.IP, m.Puerto, pid, recurso)
}

// Leer trae largo bytes desde dir de la memoria del proceso pid.
func (m *Memoria) Leer(pid int, dir uint32, largo int) ([]byte, error) {
	url := fmt.Sprintf("%s?direccion=0x%x&largo=%d", m.url(pid, "memoria"), dir, largo)

	resp, err := http.Get(url)
	if err != nil {
		m.Log.Error("Error al leer memoria del proceso",
			log.ErrAttr(err),
			log.StringAttr("ip", m.IP),
			log.IntAttr("puerto", m.Puerto),
			log.IntAttr("pid", pid),
		)
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err = respuestaOK(resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("leer memoria del proceso %d: %w", pid, err)
	}
	var b bloque
	if err = json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return nil, fmt.Errorf("decodificar memoria del proceso %d: %w", pid, err)
	}
	return b.Datos, nil
}

// Escribir copia datos en dir de la memoria del proceso pid.
func (m *Memoria) Escribir(pid int, dir uint32, datos []byte) error {
	body, err := json.Marshal(bloque{Direccion: dir, Datos: datos})
	if err != nil {
		return err
	}

	resp, err := http.Post(m.url(pid, "memoria"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		m.Log.Error("Error al escribir memoria del proceso",
			log.ErrAttr(err),
			log.IntAttr("pid", pid),
		)
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err = respuestaOK(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("escribir memoria del proceso %d: %w", pid, err)
	}
	m.Log.Debug("Memoria escrita",
		log.IntAttr("pid", pid),
		log.HexAttr("direccion", dir),
		log.IntAttr("bytes", len(datos)),
	)
	return nil
}

// DumpProceso pide al kernel un dump de la memoria del proceso y devuelve la ruta del archivo generado.
func (m *Memoria) DumpProceso(pid int) (string, error) {
	resp, err := http.Post(m.url(pid, "dump"), "application/json", nil)
	if err != nil {
		m.Log.Error("Error al solicitar dump de proceso",
			log.ErrAttr(err),
			log.StringAttr("ip", m.IP),
			log.IntAttr("puerto", m.Puerto),
			log.IntAttr("pid", pid),
		)
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err = respuestaOK(resp, http.StatusOK); err != nil {
		return "", fmt.Errorf("dump del proceso %d: %w", pid, err)
	}
	var r struct {
		Archivo string `json:"archivo"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("decodificar dump del proceso %d: %w", pid, err)
	}

	m.Log.Debug("Dump de proceso realizado exitosamente",
		log.IntAttr("pid", pid),
		log.StringAttr("archivo", r.Archivo),
	)
	return r.Archivo, nil
}

// ErrRespuesta es un status inesperado del kernel con el mensaje de error que mandó.
type ErrRespuesta struct {
	Status  int
	Mensaje string
}

func (e *ErrRespuesta) Error() string {
	return fmt.Sprintf("el kernel respondió %d: %s", e.Status, e.Mensaje)
}

func respuestaOK(resp *http.Response, esperado int) error {
	if resp.StatusCode == esperado {
		return nil
	}
	var cuerpo struct {
		Error string `json:"error"`
	}
	datos, _ := io.ReadAll(resp.Body)
	if json.Unmarshal(datos, &cuerpo) != nil || cuerpo.Error == "" {
		cuerpo.Error = string(datos)
	}
	return &ErrRespuesta{Status: resp.StatusCode, Mensaje: cuerpo.Error}
}
