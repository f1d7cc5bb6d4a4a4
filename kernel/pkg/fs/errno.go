package fs

import "fmt"

// Errno es un código de error con la numeración de Linux/MIPS. Es lo que ve el programa invitado.
type Errno int32

const (
	EPERM        Errno = 1
	ENOENT       Errno = 2
	ESRCH        Errno = 3
	EINTR        Errno = 4
	EIO          Errno = 5
	ENOEXEC      Errno = 8
	EBADF        Errno = 9
	ECHILD       Errno = 10
	EAGAIN       Errno = 11
	ENOMEM       Errno = 12
	EACCES       Errno = 13
	EFAULT       Errno = 14
	EEXIST       Errno = 17
	ENOTDIR      Errno = 20
	EISDIR       Errno = 21
	EINVAL       Errno = 22
	EMFILE       Errno = 24
	ENOTTY       Errno = 25
	EFBIG        Errno = 27
	ESPIPE       Errno = 29
	EPIPE        Errno = 32
	ERANGE       Errno = 34
	ENAMETOOLONG Errno = 78
	ENOSYS       Errno = 89
	ELOOP        Errno = 90
	ENOTEMPTY    Errno = 93
	ENOTSUP      Errno = 122
)

var nombresErrno = map[Errno]string{
	EPERM:        "operación no permitida",
	ENOENT:       "no existe el archivo o directorio",
	ESRCH:        "no existe el proceso",
	EINTR:        "llamada interrumpida",
	EIO:          "error de entrada/salida",
	ENOEXEC:      "formato de ejecutable inválido",
	EBADF:        "descriptor inválido",
	ECHILD:       "no hay procesos hijos",
	EAGAIN:       "recurso no disponible por ahora",
	ENOMEM:       "sin memoria",
	EACCES:       "permiso denegado",
	EFAULT:       "dirección inválida",
	EEXIST:       "el archivo ya existe",
	ENOTDIR:      "no es un directorio",
	EISDIR:       "es un directorio",
	EINVAL:       "argumento inválido",
	EMFILE:       "demasiados archivos abiertos",
	ENOTTY:       "ioctl inapropiado para el dispositivo",
	EFBIG:        "archivo demasiado grande",
	ESPIPE:       "seek ilegal",
	EPIPE:        "pipe roto",
	ERANGE:       "resultado fuera de rango",
	ENAMETOOLONG: "nombre demasiado largo",
	ENOSYS:       "función no implementada",
	ELOOP:        "demasiados niveles de enlaces simbólicos",
	ENOTEMPTY:    "directorio no vacío",
	ENOTSUP:      "operación no soportada",
}

func (e Errno) Error() string {
	if s, ok := nombresErrno[e]; ok {
		return s
	}
	return fmt.Sprintf("errno %d", int32(e))
}

// Negativo es el valor que devuelve una syscall que falló con e.
func (e Errno) Negativo() int32 {
	return -int32(e)
}
