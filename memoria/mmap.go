package memoria

import "errors"

const (
	// Números de página entre los que busca Mmap (0x60000000 a 0xFFFFFFFF).
	PrimeraPaginaMmap = 0x60000
	LimitePaginasMmap = 0x100000
)

var ErrSinMemoria = errors.New("no hay un rango de páginas libre para mmap")

// Mmap reserva la primera corrida de paginas páginas libres de la zona de mmap y devuelve su dirección.
// Las páginas quedan en cero.
func (v *VMem) Mmap(paginas uint32) (uint32, error) {
	if paginas == 0 || paginas > LimitePaginasMmap-PrimeraPaginaMmap {
		return 0, ErrSinMemoria
	}

	inicio := uint32(PrimeraPaginaMmap)
	for inicio+paginas <= LimitePaginasMmap {
		libre := true
		for num := inicio; num < inicio+paginas; num++ {
			if _, usada := v.paginas[num]; usada {
				inicio = num + 1
				libre = false
				break
			}
		}
		if libre {
			v.crear(inicio, paginas)
			return inicio << BitsPagina, nil
		}
	}
	return 0, ErrSinMemoria
}

// MmapEn mapea páginas nuevas en base, pisando lo que hubiera (MAP_FIXED).
func (v *VMem) MmapEn(base, paginas uint32) {
	v.crear(base>>BitsPagina, paginas)
}

func (v *VMem) crear(primera, paginas uint32) {
	for num := primera; num < primera+paginas; num++ {
		v.paginas[num] = nuevaPagina()
	}
	v.invalidarCache()
}

// Munmap libera las páginas del rango; un acceso posterior las vuelve a crear en cero.
func (v *VMem) Munmap(base, paginas uint32) {
	primera := base >> BitsPagina
	for num := primera; num < primera+paginas; num++ {
		delete(v.paginas, num)
	}
	v.invalidarCache()
}
