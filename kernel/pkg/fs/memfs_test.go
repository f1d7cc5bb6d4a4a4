package fs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemFS_OpenInexistente(t *testing.T) {
	f := NuevoMemFS()
	_, err := f.Open("/tmp/nada", ORdonly, 0)
	assert.ErrorIs(t, err, ENOENT)
}

func TestMemFS_CrearEscribirLeer(t *testing.T) {
	ass := assert.New(t)
	f := NuevoMemFS()

	s, err := f.Open("/tmp/hola.txt", OWronly|OCreat|OTrunc, 0o644)
	require.NoError(t, err)
	n, err := s.Write([]byte("hola mundo"), 0)
	ass.NoError(err)
	ass.Equal(10, n)
	ass.NoError(s.Close())

	s, err = f.Open("/tmp/hola.txt", ORdonly, 0)
	require.NoError(t, err)
	buf := make([]byte, 32)
	n, err = s.Read(buf, 5)
	ass.NoError(err)
	ass.Equal("mundo", string(buf[:n]))

	_, err = s.Write([]byte("x"), 0)
	ass.ErrorIs(err, EBADF)

	st, err := f.Stat("/tmp/hola.txt")
	ass.NoError(err)
	ass.Equal(int64(10), st.Tamanio)
	ass.Equal(uint32(SIfreg|0o644), st.Modo)
	ass.True(st.Posicionable())
}

func TestMemFS_EscrituraConHuecoRellenaConCeros(t *testing.T) {
	f := NuevoMemFS()
	s, err := f.Open("/tmp/a", ORdwr|OCreat, 0o644)
	require.NoError(t, err)
	_, _ = s.Write([]byte("abcdef"), 0)

	s, err = f.Open("/tmp/a", ORdwr|OTrunc, 0)
	require.NoError(t, err)
	_, _ = s.Write([]byte("z"), 3)

	buf := make([]byte, 8)
	n, _ := s.Read(buf, 0)
	assert.Equal(t, []byte{0, 0, 0, 'z'}, buf[:n])
}

func TestMemFS_OCreatOExcl(t *testing.T) {
	f := NuevoMemFS()
	require.NoError(t, f.EscribirArchivo("/tmp/x", []byte("1"), 0o644))
	_, err := f.Open("/tmp/x", OWronly|OCreat|OExcl, 0o644)
	assert.ErrorIs(t, err, EEXIST)
}

func TestMemFS_Directorios(t *testing.T) {
	ass := assert.New(t)
	f := NuevoMemFS()

	ass.NoError(f.Mkdir("/home", 0o755))
	ass.ErrorIs(f.Mkdir("/home", 0o755), EEXIST)
	ass.ErrorIs(f.Mkdir("/no/existe", 0o755), ENOENT)
	ass.NoError(f.EscribirArchivo("/home/b", nil, 0o644))
	ass.NoError(f.EscribirArchivo("/home/a", nil, 0o644))
	ass.ErrorIs(f.Mkdir("/home/a/sub", 0o755), ENOTDIR)

	ents, err := f.Readdir("/home")
	ass.NoError(err)
	nombres := make([]string, 0, len(ents))
	for _, e := range ents {
		nombres = append(nombres, e.Nombre)
	}
	ass.Equal([]string{".", "..", "a", "b"}, nombres)
	ass.Equal(uint8(DTReg), ents[2].Tipo)

	_, err = f.Open("/home", OWronly, 0)
	ass.ErrorIs(err, EISDIR)
	_, err = f.Open("/home/a", ORdonly|ODirectory, 0)
	ass.ErrorIs(err, ENOTDIR)

	s, err := f.Open("/home", ORdonly|ODirectory, 0)
	ass.NoError(err)
	_, esDir := s.(Directorio)
	ass.True(esDir)

	ass.ErrorIs(f.Unlink("/home"), EISDIR)
	ass.NoError(f.Unlink("/home/a"))
	ass.ErrorIs(f.Unlink("/home/a"), ENOENT)
}

func TestMemFS_Symlinks(t *testing.T) {
	ass := assert.New(t)
	f := NuevoMemFS()
	require.NoError(t, f.EscribirArchivo("/usr/bin/real", []byte("bin"), 0o755))

	ass.NoError(f.Symlink("/usr/bin/real", "/bin"))
	ass.NoError(f.Symlink("real", "/usr/bin/rel"))
	ass.ErrorIs(f.Symlink("x", "/bin"), EEXIST)

	st, err := f.Stat("/bin")
	ass.NoError(err)
	ass.Equal(int64(3), st.Tamanio)

	st, err = f.Lstat("/bin")
	ass.NoError(err)
	ass.True(st.EsLink())

	st, err = f.Stat("/usr/bin/rel")
	ass.NoError(err)
	ass.Equal(uint32(SIfreg|0o755), st.Modo)

	destino, err := f.Readlink("/bin")
	ass.NoError(err)
	ass.Equal("/usr/bin/real", destino)
	_, err = f.Readlink("/usr/bin/real")
	ass.ErrorIs(err, EINVAL)

	_, err = f.Open("/bin", ORdonly|ONofollow, 0)
	ass.ErrorIs(err, ELOOP)

	// directorio a través de un link
	ass.NoError(f.Symlink("/usr", "/u"))
	_, err = f.Stat("/u/bin/real")
	ass.NoError(err)
	_, err = f.Stat("/u/bin/../bin/real")
	ass.NoError(err)
}

func TestMemFS_CicloDeLinks(t *testing.T) {
	f := NuevoMemFS()
	require.NoError(t, f.Symlink("/b", "/a"))
	require.NoError(t, f.Symlink("/a", "/b"))
	_, err := f.Stat("/a")
	assert.ErrorIs(t, err, ELOOP)
}

func TestMemFS_Dispositivos(t *testing.T) {
	ass := assert.New(t)
	f := NuevoMemFS()

	z, err := f.Open("/dev/zero", ORdonly, 0)
	require.NoError(t, err)
	buf := []byte{1, 2, 3}
	n, _ := z.Read(buf, 0)
	ass.Equal(3, n)
	ass.Equal([]byte{0, 0, 0}, buf)

	null, err := f.Open("/dev/null", ORdwr, 0)
	require.NoError(t, err)
	n, _ = null.Read(buf, 0)
	ass.Equal(0, n)
	n, _ = null.Write([]byte("tirar"), 0)
	ass.Equal(5, n)

	st, err := null.Stat()
	ass.NoError(err)
	ass.False(st.Posicionable())
}

func TestConsola(t *testing.T) {
	ass := assert.New(t)
	var salida bytes.Buffer
	c := NuevaConsola(&salida)
	f := NuevoMemFS()
	require.NoError(t, f.Dispositivo("/dev/tty", func() Stream { return c }))

	s, err := f.Open("/dev/tty", ORdwr, 0)
	require.NoError(t, err)
	_, _ = s.Write([]byte("$ "), 0)
	ass.Equal("$ ", salida.String())

	buf := make([]byte, 4)
	_, err = s.Read(buf, 0)
	var p *Pendiente
	require.ErrorAs(t, err, &p)

	despierto := false
	p.AlCompletar(func() { despierto = true })
	c.Alimentar([]byte("ls -l\n"))
	ass.True(despierto)

	n, err := s.Read(buf, 0)
	ass.NoError(err)
	ass.Equal("ls -", string(buf[:n]))
	n, _ = s.Read(buf, 0)
	ass.Equal("l\n", string(buf[:n]))

	c.CerrarEntrada()
	n, err = s.Read(buf, 0)
	ass.NoError(err)
	ass.Equal(0, n)
}

func TestPendiente(t *testing.T) {
	p := NuevaPendiente()
	llamadas := 0
	p.AlCompletar(func() { llamadas++ })
	p.Completar()
	p.Completar()
	p.AlCompletar(func() { llamadas++ })

	assert.Equal(t, 2, llamadas)
	assert.True(t, p.Completada())
}

func TestErrno(t *testing.T) {
	assert.Equal(t, int32(-2), ENOENT.Negativo())
	assert.Equal(t, "no existe el archivo o directorio", ENOENT.Error())
	assert.Equal(t, "errno 200", Errno(200).Error())
}
