package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipe_LecturaBloqueaHastaQueEscriban(t *testing.T) {
	ass := assert.New(t)
	r, w := NuevoPipe()
	buf := make([]byte, 16)

	_, err := r.Read(buf, 0)
	var p *Pendiente
	require.ErrorAs(t, err, &p)

	despierto := false
	p.AlCompletar(func() { despierto = true })

	n, err := w.Write([]byte("hola"), 0)
	ass.NoError(err)
	ass.Equal(4, n)
	ass.True(despierto)

	n, err = r.Read(buf, 0)
	ass.NoError(err)
	ass.Equal("hola", string(buf[:n]))
}

func TestPipe_FinDeArchivoSinEscritores(t *testing.T) {
	ass := assert.New(t)
	r, w := NuevoPipe()
	buf := make([]byte, 4)

	_, _ = w.Write([]byte("ab"), 0)
	ass.NoError(w.Close())

	n, err := r.Read(buf, 0)
	ass.NoError(err)
	ass.Equal(2, n)
	n, err = r.Read(buf, 0)
	ass.NoError(err)
	ass.Equal(0, n)
}

func TestPipe_CerrarEscritorDespiertaLector(t *testing.T) {
	r, w := NuevoPipe()
	_, err := r.Read(make([]byte, 1), 0)
	var p *Pendiente
	require.ErrorAs(t, err, &p)

	require.NoError(t, w.Close())
	assert.True(t, p.Completada())
}

func TestPipe_SinLectoresEPIPE(t *testing.T) {
	r, w := NuevoPipe()
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err := w.Write([]byte("x"), 0)
	assert.ErrorIs(t, err, EPIPE)
}

func TestPipe_ExtremosEquivocados(t *testing.T) {
	r, w := NuevoPipe()
	_, err := r.Write([]byte("x"), 0)
	assert.ErrorIs(t, err, EBADF)
	_, err = w.Read(make([]byte, 1), 0)
	assert.ErrorIs(t, err, EBADF)

	st, err := r.Stat()
	assert.NoError(t, err)
	assert.Equal(t, uint32(SIfifo|0o600), st.Modo)
	assert.False(t, st.Posicionable())
}
