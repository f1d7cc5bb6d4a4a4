// Package remotefs monta directorios cuyos archivos se bajan por HTTP la primera vez que se piden.
package remotefs

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fs"
	"github.com/sisoputnfrba/mips-golang/utils/log"
)

var ErrDescarga = errors.New("descarga fallida")

type montaje struct {
	punto string
	url   string
}

// RemoteFS envuelve un MemFS. Una ruta que no existe localmente y cae bajo un punto de montaje se baja de
// la URL del montaje; mientras tanto la operación devuelve *fs.Pendiente. Las descargas fallidas se recuerdan
// y se ven como ENOENT.
type RemoteFS struct {
	Log *slog.Logger

	base       *fs.MemFS
	montajes   []montaje
	despachar  func(func())
	pendientes map[string]*fs.Pendiente
	fallidos   map[string]error
}

// New crea el sistema remoto. despachar tiene que correr la función en la goroutine dueña de base.
func New(base *fs.MemFS, despachar func(func()), logger *slog.Logger) *RemoteFS {
	return &RemoteFS{
		Log:        logger,
		base:       base,
		despachar:  despachar,
		pendientes: make(map[string]*fs.Pendiente),
		fallidos:   make(map[string]error),
	}
}

// Montar publica bajo punto los archivos de url.
func (r *RemoteFS) Montar(punto, url string) {
	r.montajes = append(r.montajes, montaje{
		punto: path.Clean(punto),
		url:   strings.TrimSuffix(url, "/"),
	})
	r.Log.Info("Directorio remoto montado",
		log.StringAttr("punto", punto),
		log.StringAttr("url", url),
	)
}

func (r *RemoteFS) urlDe(ruta string) (string, bool) {
	ruta = path.Clean(ruta)
	for _, m := range r.montajes {
		if rel, ok := strings.CutPrefix(ruta, m.punto+"/"); ok && rel != "" {
			return m.url + "/" + rel, true
		}
	}
	return "", false
}

// traer decide qué hacer con un ENOENT local: pendiente si hay (o arranca) una descarga, ENOENT si no.
func (r *RemoteFS) traer(ruta string, err error) error {
	if !errors.Is(err, fs.ENOENT) {
		return err
	}
	ruta = path.Clean(ruta)
	url, ok := r.urlDe(ruta)
	if !ok {
		return err
	}
	if _, fallo := r.fallidos[ruta]; fallo {
		return fs.ENOENT
	}
	if p, ok := r.pendientes[ruta]; ok {
		return p
	}

	p := fs.NuevaPendiente()
	r.pendientes[ruta] = p
	r.Log.Debug("Descargando archivo remoto",
		log.StringAttr("ruta", ruta),
		log.StringAttr("url", url),
	)
	go r.descargar(ruta, url, p)
	return p
}

func (r *RemoteFS) descargar(ruta, url string, p *fs.Pendiente) {
	datos, err := bajar(url)
	r.despachar(func() {
		delete(r.pendientes, ruta)
		if err == nil {
			err = r.base.EscribirArchivo(ruta, datos, 0o755)
		}
		if err != nil {
			r.fallidos[ruta] = err
			r.Log.Warn("No se pudo traer el archivo remoto",
				log.StringAttr("ruta", ruta),
				log.StringAttr("url", url),
				log.ErrAttr(err),
			)
		} else {
			r.Log.Debug("Archivo remoto disponible",
				log.StringAttr("ruta", ruta),
				log.IntAttr("bytes", len(datos)),
			)
		}
		p.Completar()
	})
}

func bajar(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDescarga, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrDescarga, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Olvidar descarta la falla recordada de ruta para que el próximo acceso vuelva a intentar.
func (r *RemoteFS) Olvidar(ruta string) {
	delete(r.fallidos, path.Clean(ruta))
}

func (r *RemoteFS) Open(ruta string, flags int, modo uint32) (fs.Stream, error) {
	s, err := r.base.Open(ruta, flags, modo)
	if err != nil && flags&fs.OCreat == 0 {
		return nil, r.traer(ruta, err)
	}
	return s, err
}

func (r *RemoteFS) Stat(ruta string) (fs.Stat, error) {
	st, err := r.base.Stat(ruta)
	if err != nil {
		return st, r.traer(ruta, err)
	}
	return st, nil
}

func (r *RemoteFS) Lstat(ruta string) (fs.Stat, error) {
	st, err := r.base.Lstat(ruta)
	if err != nil {
		return st, r.traer(ruta, err)
	}
	return st, nil
}

func (r *RemoteFS) Mkdir(ruta string, modo uint32) error {
	return r.base.Mkdir(ruta, modo)
}

func (r *RemoteFS) Symlink(destino, ruta string) error {
	return r.base.Symlink(destino, ruta)
}

func (r *RemoteFS) Unlink(ruta string) error {
	return r.base.Unlink(ruta)
}

func (r *RemoteFS) Readlink(ruta string) (string, error) {
	return r.base.Readlink(ruta)
}

func (r *RemoteFS) Readdir(ruta string) ([]fs.Dirent, error) {
	return r.base.Readdir(ruta)
}
