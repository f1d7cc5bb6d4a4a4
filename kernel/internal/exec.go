package internal

import (
	"errors"
	"fmt"
	"io"

	"github.com/sisoputnfrba/mips-golang/kernel/pkg/fs"
	"github.com/sisoputnfrba/mips-golang/memoria"
	"github.com/sisoputnfrba/mips-golang/utils/log"
)

const RutaConsola = "/dev/console"

// Exec reemplaza la imagen del proceso por el ELF de ruta. Si el archivo (o su intérprete) todavía no
// está disponible devuelve *fs.Pendiente sin haber tocado al proceso.
func (k *Kernel) Exec(p *Proceso, ruta string, args, env []string) error {
	datos, err := k.leerArchivo(ruta)
	if err != nil {
		return err
	}
	prog, err := analizarELF(datos)
	if err != nil {
		k.Log.Debug("execve de un archivo que no es ELF", log.StringAttr("ruta", ruta), log.ErrAttr(err))
		return fs.ENOEXEC
	}

	var interp *programa
	if prog.interprete != "" {
		datosInterp, err := k.leerArchivo(prog.interprete)
		if err != nil {
			return err
		}
		if interp, err = analizarELF(datosInterp); err != nil {
			return fs.ENOEXEC
		}
	}

	m := p.Maquina
	p.FDs.CerrarCloexec()
	m.Reiniciar()

	img, err := prog.cargar(m.Mem, 0)
	if err != nil {
		return k.execFallido(p, err)
	}
	entrada, base := img.entrada, uint32(0)
	if interp != nil {
		imgInterp, err := interp.cargar(m.Mem, BaseInterprete)
		if err != nil {
			return k.execFallido(p, err)
		}
		entrada, base = imgInterp.entrada, BaseInterprete
	}

	if img.tieneGP {
		m.Regs[28] = img.gp
	}
	m.Regs[29] = armarPila(m.Mem, args, env, [][2]uint32{
		{atPhdr, img.phdr},
		{atPhent, 32},
		{atPhnum, img.phnum},
		{atPagesz, memoria.TamPagina},
		{atBase, base},
		{atEntry, img.entrada},
		{atUID, 0},
		{atEUID, 0},
		{atGID, 0},
		{atEGID, 0},
	})
	m.PC = entrada
	m.NPC = entrada + 4
	m.DataEnd = (img.fin + memoria.TamPagina - 1) &^ (memoria.TamPagina - 1)

	if prog.precompilado != "" {
		if r, ok := k.Motor.Precompilado(prog.precompilado); ok {
			m.SetPrecompilado(r)
		} else {
			k.Log.Warn("El binario pide una rutina precompilada que no está registrada",
				log.StringAttr("ruta", ruta),
				log.StringAttr("rutina", prog.precompilado),
			)
		}
	}

	p.Programa = ruta
	p.Args = args
	k.Log.Info(fmt.Sprintf("## (%d) - Ejecuta %s", p.PID, ruta),
		log.HexAttr("entrada", entrada),
		log.IntAttr("argc", len(args)),
	)
	return nil
}

// execFallido corta un execve que falló después de descartar la imagen vieja: no hay a dónde volver.
func (k *Kernel) execFallido(p *Proceso, err error) error {
	k.Log.Error("execve falló con la imagen ya descartada",
		log.IntAttr("pid", p.PID),
		log.ErrAttr(err),
	)
	p.Senal = senalFalla
	p.Maquina.Stop()
	return fs.ENOEXEC
}

// leerArchivo trae el contenido completo de un archivo regular.
func (k *Kernel) leerArchivo(ruta string) ([]byte, error) {
	s, err := k.FS.Open(ruta, fs.ORdonly, 0)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = s.Close()
	}()

	st, err := s.Stat()
	if err != nil {
		return nil, err
	}
	if st.Modo&fs.SIfmt != fs.SIfreg {
		return nil, fs.EACCES
	}

	datos := make([]byte, 0, st.Tamanio)
	buf := make([]byte, 64<<10)
	for {
		n, err := s.Read(buf, int64(len(datos)))
		datos = append(datos, buf[:n]...)
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			return datos, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Spawn crea un proceso nuevo con la consola en 0, 1 y 2 y le carga ruta. Si el programa todavía se está
// descargando la máquina queda bloqueada hasta que llegue.
func (k *Kernel) Spawn(ruta string, args, env []string) (*Proceso, error) {
	m := k.Motor.NuevaMaquina()
	p := k.procesos[m.ID()]
	k.abrirConsola(p)
	if len(args) == 0 {
		args = []string{ruta}
	}

	if err := k.arrancar(p, ruta, args, env); err != nil {
		p.CodigoSalida = 127
		m.Stop()
		return nil, err
	}
	k.Log.Info(fmt.Sprintf("## (%d) Se crea el proceso - Estado: NEW", p.PID),
		log.StringAttr("programa", ruta),
	)
	return p, nil
}

func (k *Kernel) arrancar(p *Proceso, ruta string, args, env []string) error {
	m := p.Maquina
	err := k.Exec(p, ruta, args, env)
	var pend *fs.Pendiente
	switch {
	case errors.As(err, &pend):
		m.Block()
		pend.AlCompletar(func() {
			if err := k.arrancar(p, ruta, args, env); err != nil {
				k.Log.Warn("No se pudo cargar el programa",
					log.IntAttr("pid", p.PID),
					log.StringAttr("ruta", ruta),
					log.ErrAttr(err),
				)
				p.CodigoSalida = 127
				m.Stop()
			}
		})
		return nil
	case err != nil:
		return err
	}
	// lo pone en la cola de listos
	m.Unblock()
	return nil
}

func (k *Kernel) abrirConsola(p *Proceso) {
	s, err := k.FS.Open(RutaConsola, fs.ORdwr, 0)
	if err != nil {
		k.Log.Debug("Proceso sin consola", log.IntAttr("pid", p.PID), log.ErrAttr(err))
		return
	}
	n, err := p.FDs.Abrir(s, fs.ORdwr)
	if err != nil {
		return
	}
	for _, otro := range []int{1, 2} {
		_, _ = p.FDs.Dup2(n, otro)
	}
}
