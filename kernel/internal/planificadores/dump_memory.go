package planificadores

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sisoputnfrba/mips-golang/cpu"
	"github.com/sisoputnfrba/mips-golang/memoria"
	"github.com/sisoputnfrba/mips-golang/utils/log"
)

// RealizarDumpMemory vuelca las páginas presentes de m en dir/<pid>-<timestamp>.dmp. Cada página va
// como su dirección base en 4 bytes big-endian seguida de su contenido. Devuelve la ruta del archivo.
func (s *Service) RealizarDumpMemory(m *cpu.Maquina, dir string) (string, error) {
	s.Log.Info(fmt.Sprintf("## (%d) - Memory Dump solicitado", m.ID()))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("crear directorio de dumps: %w", err)
	}
	ruta := filepath.Join(dir, fmt.Sprintf("%d-%s.dmp", m.ID(), time.Now().Format("20060102-150405.000")))
	f, err := os.Create(ruta)
	if err != nil {
		return "", fmt.Errorf("crear dump: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	w := bufio.NewWriter(f)
	var base [4]byte
	bases := m.Mem.Bases()
	for _, b := range bases {
		binary.BigEndian.PutUint32(base[:], b)
		if _, err = w.Write(base[:]); err != nil {
			return "", fmt.Errorf("escribir dump: %w", err)
		}
		if _, err = w.Write(m.Mem.Leer(b, memoria.TamPagina)); err != nil {
			return "", fmt.Errorf("escribir dump: %w", err)
		}
	}
	if err = w.Flush(); err != nil {
		return "", fmt.Errorf("escribir dump: %w", err)
	}

	s.Log.Debug("Dump de memoria escrito",
		log.IntAttr("pid", m.ID()),
		log.IntAttr("paginas", len(bases)),
		log.StringAttr("archivo", ruta),
	)
	return ruta, nil
}
