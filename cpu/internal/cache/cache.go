// Package cache es una caché acotada con reemplazo FIFO o LRU. La CPU guarda ahí las rutinas
// recompiladas de cada página de código.
package cache

import (
	"log/slog"
	"sync"

	"github.com/sisoputnfrba/mips-golang/utils/log"
)

const (
	AlgoritmoFIFO = "FIFO"
	AlgoritmoLRU  = "LRU"
)

// Cache guarda hasta MaxEntries valores; con MaxEntries <= 0 no hay límite.
type Cache[K comparable, V any] struct {
	Entries    map[K]*Entry[V]
	MaxEntries int
	Algoritmo  string // "FIFO" o "LRU"
	Log        *slog.Logger

	mutex   sync.Mutex
	reloj   uint64
	metrics Metricas
}

// Entry es una entrada de la caché. Los tiempos son ticks lógicos, no de reloj.
type Entry[V any] struct {
	Valor           V
	UltimoAcceso    uint64
	TiempoCreacion  uint64 // Para algoritmo FIFO
	ConteoDeAccesos int
}

type Metricas struct {
	Hits      int `json:"hits"`
	Misses    int `json:"misses"`
	Evictions int `json:"evictions"`
	Entradas  int `json:"entradas"`
}

func New[K comparable, V any](maxEntries int, algoritmo string, logger *slog.Logger) *Cache[K, V] {
	if algoritmo != AlgoritmoLRU {
		algoritmo = AlgoritmoFIFO
	}
	return &Cache[K, V]{
		Entries:    make(map[K]*Entry[V]),
		MaxEntries: maxEntries,
		Algoritmo:  algoritmo,
		Log:        logger,
	}
}

func (c *Cache[K, V]) tick() uint64 {
	c.reloj++
	return c.reloj
}

// Obtener devuelve el valor de k y actualiza sus estadísticas de acceso.
func (c *Cache[K, V]) Obtener(k K) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.Entries[k]
	if !ok {
		c.metrics.Misses++
		var cero V
		return cero, false
	}
	c.metrics.Hits++
	entry.UltimoAcceso = c.tick()
	entry.ConteoDeAccesos++
	return entry.Valor, true
}

// Agregar guarda v bajo k, desalojando una entrada si la caché está llena.
func (c *Cache[K, V]) Agregar(k K, v V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if entry, ok := c.Entries[k]; ok {
		entry.Valor = v
		entry.TiempoCreacion = c.tick()
		entry.UltimoAcceso = entry.TiempoCreacion
		return
	}

	if c.MaxEntries > 0 && len(c.Entries) >= c.MaxEntries {
		c.evictEntry()
	}

	ahora := c.tick()
	c.Entries[k] = &Entry[V]{
		Valor:           v,
		UltimoAcceso:    ahora,
		TiempoCreacion:  ahora,
		ConteoDeAccesos: 1,
	}
}

func (c *Cache[K, V]) Eliminar(k K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.Entries, k)
}

func (c *Cache[K, V]) Limpiar() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.Entries = make(map[K]*Entry[V])
}

func (c *Cache[K, V]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.Entries)
}

func (c *Cache[K, V]) Metricas() Metricas {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	m := c.metrics
	m.Entradas = len(c.Entries)
	return m
}

// evictEntry remueve una entrada según el algoritmo configurado
func (c *Cache[K, V]) evictEntry() {
	var (
		victima K
		menor   uint64
		hay     bool
	)
	for key, entry := range c.Entries {
		t := entry.TiempoCreacion
		if c.Algoritmo == AlgoritmoLRU {
			t = entry.UltimoAcceso
		}
		if !hay || t < menor {
			victima, menor, hay = key, t, true
		}
	}

	if hay {
		delete(c.Entries, victima)
		c.metrics.Evictions++
		if c.Log != nil {
			c.Log.Debug("Entrada de caché evictada",
				log.StringAttr("algoritmo", c.Algoritmo),
				log.IntAttr("entradas", len(c.Entries)))
		}
	}
}
