package uniqueid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetUniqueID_Secuencial(t *testing.T) {
	ass := assert.New(t)
	u := Init()
	ass.Equal(0, u.Ultimo())
	ass.Equal(1, u.GetUniqueID())
	ass.Equal(2, u.GetUniqueID())
	ass.Equal(2, u.Ultimo())
}

func TestGetUniqueID_Concurrente(t *testing.T) {
	u := InitDesde(100)
	var wg sync.WaitGroup
	var mu sync.Mutex
	vistos := map[int]bool{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := u.GetUniqueID()
			mu.Lock()
			vistos[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, vistos, 50)
	assert.Equal(t, 149, u.Ultimo())
}
