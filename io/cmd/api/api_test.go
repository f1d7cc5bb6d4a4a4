package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/sisoputnfrba/mips-golang/io/internal"
	"github.com/sisoputnfrba/mips-golang/utils/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "http://kernel.local:8001"

func nuevoHandler(t *testing.T, tamBloque int) *Handler {
	h := NewHandler(&internal.Config{IpKernel: "kernel.local", PortKernel: 8001, TamBloque: tamBloque},
		log.NewLogger(io.Discard, "error"))
	httpmock.ActivateNonDefault(h.HttpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return h
}

func TestHandler_CrearProceso(t *testing.T) {
	tests := []struct {
		name    string
		expects func()
		want    int
		wantErr string
	}{
		{
			name: "Proceso creado",
			expects: func() {
				httpmock.RegisterResponder("POST", base+"/procesos",
					httpmock.NewStringResponder(201, `{"pid":7,"programa":"/bin/sh","estado":"READY"}`))
			},
			want: 7,
		},
		{
			name: "Programa inexistente",
			expects: func() {
				httpmock.RegisterResponder("POST", base+"/procesos",
					httpmock.NewStringResponder(404, `{"error":"no such file or directory"}`))
			},
			wantErr: "404: no such file or directory",
		},
		{
			name: "Kernel caído",
			expects: func() {
				httpmock.RegisterResponder("POST", base+"/procesos",
					httpmock.NewErrorResponder(errors.New("connection refused")))
			},
			wantErr: "connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := nuevoHandler(t, 0)
			tt.expects()

			got, err := h.CrearProceso("/bin/sh", []string{"sh"}, nil)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandler_ConsultarProceso(t *testing.T) {
	h := nuevoHandler(t, 0)
	httpmock.RegisterResponder("GET", base+"/procesos/3",
		httpmock.NewStringResponder(200, `{"pid":3,"estado":"BLOCKED","terminado":false}`))
	httpmock.RegisterResponder("GET", base+"/procesos/4",
		httpmock.NewStringResponder(404, `{"error":"no existe el proceso 4"}`))

	p, err := h.ConsultarProceso(3)
	require.NoError(t, err)
	assert.Equal(t, Proceso{PID: 3, Estado: "BLOCKED"}, p)

	_, err = h.ConsultarProceso(4)
	assert.ErrorIs(t, err, ErrProcesoInexistente)
}

func TestHandler_Reenviar(t *testing.T) {
	h := nuevoHandler(t, 4)
	var bloques []string
	cerrada := false
	httpmock.RegisterResponder("POST", base+"/consola", func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("eof") == "true" {
			cerrada = true
		} else {
			b, _ := io.ReadAll(req.Body)
			bloques = append(bloques, string(b))
		}
		return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
	})

	require.NoError(t, h.Reenviar(context.Background(), strings.NewReader("hola mundo")))
	assert.Equal(t, []string{"hola", " mun", "do"}, bloques, "se parte en bloques de tam_bloque")
	assert.True(t, cerrada, "al llegar a EOF se cierra la consola")
}

func TestHandler_ReenviarErrores(t *testing.T) {
	h := nuevoHandler(t, 16)
	httpmock.RegisterResponder("POST", base+"/consola",
		httpmock.NewStringResponder(503, `{"error":"context canceled"}`))

	err := h.Reenviar(context.Background(), strings.NewReader("x"))
	assert.ErrorContains(t, err, "503")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.Reenviar(ctx, strings.NewReader("x")), context.Canceled)
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), fmt.Sprint(httpmock.GetCallCountInfo()))
}
