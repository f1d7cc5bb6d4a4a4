package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCargarConfig(t *testing.T) {
	tests := []struct {
		name      string
		contenido string
		want      *Config
		wantErr   bool
	}{
		{
			name:      "completa",
			contenido: `{"ip_kernel":"10.0.0.1","port_kernel":8001,"log_level":"DEBUG","tam_bloque":16}`,
			want:      &Config{IpKernel: "10.0.0.1", PortKernel: 8001, LogLevel: "DEBUG", TamBloque: 16},
		},
		{
			name:      "bloque por defecto",
			contenido: `{"ip_kernel":"127.0.0.1","port_kernel":8001}`,
			want:      &Config{IpKernel: "127.0.0.1", PortKernel: 8001, TamBloque: TamBloquePorDefecto},
		},
		{name: "sin kernel", contenido: `{"port_kernel":8001}`, wantErr: true},
		{name: "puerto fuera de rango", contenido: `{"ip_kernel":"x","port_kernel":70000}`, wantErr: true},
		{name: "json roto", contenido: `{`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ruta := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(ruta, []byte(tt.contenido), 0o600))

			got, err := CargarConfig(ruta)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
