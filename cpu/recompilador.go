package cpu

import "github.com/sisoputnfrba/mips-golang/memoria"

// control es lo que devuelve cada fragmento compilado a la rutina de su página.
type control uint8

const (
	seguir      control = iota // pasar a la instrucción siguiente
	saltar                     // pc/npc apuntan al destino de un salto tomado
	interpretar                // pc/npc listos para que el intérprete ejecute la próxima
	ceder                      // pc/npc listos, hay que volver a buscar la rutina
)

// fragmento es una instrucción ya decodificada.
type fragmento func(m *Maquina) control

// rutinaPagina es el código compilado de una página: un fragmento por palabra, encadenados en orden.
type rutinaPagina struct {
	base        uint32
	gen         uint32
	presupuesto int
	frags       [memoria.PalabrasPorPagina]fragmento
}

// Correr arranca en el fragmento de pc y sigue mientras los saltos caigan en la página,
// hasta agotar el presupuesto de saltos tomados.
func (r *rutinaPagina) Correr(m *Maquina) bool {
	saltos := 0
	for {
		desp := m.PC - r.base
		if desp >= memoria.TamPagina {
			return false
		}

		c := seguir
		for i := desp >> 2; i < memoria.PalabrasPorPagina; i++ {
			if c = r.frags[i](m); c != seguir {
				break
			}
		}

		switch c {
		case seguir:
			// se terminó la página
			m.PC = r.base + memoria.TamPagina
			m.NPC = m.PC + 4
			return true
		case saltar:
			saltos++
			if saltos > r.presupuesto {
				return true
			}
		case ceder:
			return true
		default:
			return false
		}
	}
}

func (mo *Motor) compilarPagina(p *memoria.Pagina, base uint32) *rutinaPagina {
	r := &rutinaPagina{
		base:        base,
		gen:         p.Generacion(),
		presupuesto: mo.Config.PresupuestoSaltos,
	}

	for i := range r.frags {
		opc := base + uint32(i)*4
		var ranura fragmento
		if i+1 < memoria.PalabrasPorPagina {
			ranura = r.compilarSimple(opc+4, p.Palabras[i+1])
		}
		f := r.compilar(opc, p.Palabras[i], ranura)
		if f == nil {
			f = aInterprete(opc)
		}
		r.frags[i] = f
	}
	return r
}

func aInterprete(opc uint32) fragmento {
	return func(m *Maquina) control {
		m.PC = opc
		m.NPC = opc + 4
		return interpretar
	}
}

func nop(*Maquina) control {
	return seguir
}

// salto arma el fragmento de un branch o jump con su delay slot en línea.
// enlazar (si no es nil) escribe el registro de retorno antes de la ranura.
// Sin ranura compilable, deja al intérprete ejecutar la ranura con npc apuntando al destino.
func salto(opc uint32, tomar func(m *Maquina) (uint32, bool), enlazar func(m *Maquina), ranura fragmento) fragmento {
	if ranura == nil {
		return func(m *Maquina) control {
			destino, ok := tomar(m)
			if enlazar != nil {
				enlazar(m)
			}
			if !ok {
				return seguir
			}
			m.PC = opc + 4
			m.NPC = destino
			return interpretar
		}
	}
	return func(m *Maquina) control {
		destino, ok := tomar(m)
		if enlazar != nil {
			enlazar(m)
		}
		if !ok {
			return seguir
		}
		c := ranura(m)
		m.PC = destino
		m.NPC = destino + 4
		if c == ceder {
			return ceder
		}
		return saltar
	}
}

// compilar traduce op incluyendo control de flujo. Devuelve nil si op tiene que pasar por el intérprete.
func (r *rutinaPagina) compilar(opc, op uint32, ranura fragmento) fragmento {
	codigo := op >> 26
	rs, rt, rd, _, fn := campos(op)
	destino := destinoSalto(opc, op&0xFFFF)

	switch codigo {
	case opEspecial:
		switch fn {
		case fnJr:
			return salto(opc, func(m *Maquina) (uint32, bool) { return m.Regs[rs], true }, nil, ranura)
		case fnJalr:
			var enlazar func(m *Maquina)
			if rd != 0 {
				enlazar = func(m *Maquina) { m.Regs[rd] = opc + 8 }
			}
			return salto(opc, func(m *Maquina) (uint32, bool) { return m.Regs[rs], true }, enlazar, ranura)
		}
	case opJ, opJal:
		dj := destinoJ(opc, op)
		var enlazar func(m *Maquina)
		if codigo == opJal {
			enlazar = func(m *Maquina) { m.Regs[31] = opc + 8 }
		}
		return salto(opc, func(*Maquina) (uint32, bool) { return dj, true }, enlazar, ranura)
	case opBeq:
		if rs == rt {
			return salto(opc, func(*Maquina) (uint32, bool) { return destino, true }, nil, ranura)
		}
		return salto(opc, func(m *Maquina) (uint32, bool) { return destino, m.Regs[rs] == m.Regs[rt] }, nil, ranura)
	case opBne:
		return salto(opc, func(m *Maquina) (uint32, bool) { return destino, m.Regs[rs] != m.Regs[rt] }, nil, ranura)
	case opBlez:
		return salto(opc, func(m *Maquina) (uint32, bool) { return destino, int32(m.Regs[rs]) <= 0 }, nil, ranura)
	case opBgtz:
		return salto(opc, func(m *Maquina) (uint32, bool) { return destino, int32(m.Regs[rs]) > 0 }, nil, ranura)
	case opRegimm:
		if rt&0x0E != 0 {
			return nil
		}
		mayorIgual := rt&1 != 0
		var enlazar func(m *Maquina)
		if rt&0x10 != 0 {
			enlazar = func(m *Maquina) { m.Regs[31] = opc + 8 }
		}
		return salto(opc, func(m *Maquina) (uint32, bool) {
			return destino, (int32(m.Regs[rs]) >= 0) == mayorIgual
		}, enlazar, ranura)
	}
	return r.compilarSimple(opc, op)
}

// compilarSimple traduce instrucciones sin control de flujo. Sirve también para las ranuras de los saltos.
func (r *rutinaPagina) compilarSimple(opc, op uint32) fragmento {
	codigo := op >> 26
	rs, rt, rd, sa, fn := campos(op)
	imm := op & 0xFFFF

	switch {
	case codigo == opEspecial:
		return compilarR(rs, rt, rd, sa, fn)
	case codigo == opJ || codigo == opJal:
		return nil
	case esIgnorada(codigo):
		return nop
	}

	if f := tablaI[codigo]; f != nil {
		if rt == 0 {
			return nop
		}
		switch codigo {
		case opAddiu:
			k := sext(imm)
			return func(m *Maquina) control { m.Regs[rt] = m.Regs[rs] + k; return seguir }
		case opLui:
			k := imm << 16
			return func(m *Maquina) control { m.Regs[rt] = k; return seguir }
		case opOri:
			return func(m *Maquina) control { m.Regs[rt] = m.Regs[rs] | imm; return seguir }
		}
		return func(m *Maquina) control { m.Regs[rt] = f(m.Regs[rs], imm); return seguir }
	}

	desp := sext(imm)
	switch {
	case esCarga(codigo):
		if rt == 0 {
			return nop
		}
		if codigo == opLw {
			return func(m *Maquina) control { m.Regs[rt] = m.Mem.Get(m.Regs[rs] + desp); return seguir }
		}
		return func(m *Maquina) control {
			m.Regs[rt] = cargar(m.Mem, codigo, m.Regs[rs]+desp, m.Regs[rt])
			return seguir
		}
	case esAlmacenamiento(codigo):
		base := r.base
		return func(m *Maquina) control {
			addr := m.Regs[rs] + desp
			almacenar(m.Mem, codigo, addr, m.Regs[rt])
			if codigo == opSc && rt != 0 {
				m.Regs[rt] = 1
			}
			if addr&^(memoria.TamPagina-1) == base {
				// escribió sobre su propio código
				m.PC = opc + 4
				m.NPC = opc + 8
				return ceder
			}
			return seguir
		}
	case codigo == opEspecial2 && tablaE2[fn] != nil:
		if rd == 0 {
			return nop
		}
		f := tablaE2[fn]
		return func(m *Maquina) control { m.Regs[rd] = f(m.Regs[rs], m.Regs[rt]); return seguir }
	case codigo == opEspecial3 && especial3Soportada(op):
		return func(m *Maquina) control {
			m.especial3(op)
			m.Regs[0] = 0
			return seguir
		}
	}
	return nil
}

func compilarR(rs, rt, rd, sa, fn uint32) fragmento {
	if f := tablaR[fn]; f != nil {
		if rd == 0 {
			return nop
		}
		switch fn {
		case fnAddu:
			return func(m *Maquina) control { m.Regs[rd] = m.Regs[rs] + m.Regs[rt]; return seguir }
		case fnSll:
			return func(m *Maquina) control { m.Regs[rd] = m.Regs[rt] << sa; return seguir }
		case fnOr:
			return func(m *Maquina) control { m.Regs[rd] = m.Regs[rs] | m.Regs[rt]; return seguir }
		}
		return func(m *Maquina) control { m.Regs[rd] = f(m.Regs[rs], m.Regs[rt], sa); return seguir }
	}

	switch fn {
	case fnMovz:
		if rd == 0 {
			return nop
		}
		return func(m *Maquina) control {
			if m.Regs[rt] == 0 {
				m.Regs[rd] = m.Regs[rs]
			}
			return seguir
		}
	case fnMovn:
		if rd == 0 {
			return nop
		}
		return func(m *Maquina) control {
			if m.Regs[rt] != 0 {
				m.Regs[rd] = m.Regs[rs]
			}
			return seguir
		}
	case fnSync, fnReservado:
		return nop
	case fnMfhi:
		if rd == 0 {
			return nop
		}
		return func(m *Maquina) control { m.Regs[rd] = m.Hi; return seguir }
	case fnMflo:
		if rd == 0 {
			return nop
		}
		return func(m *Maquina) control { m.Regs[rd] = m.Lo; return seguir }
	case fnMthi:
		return func(m *Maquina) control { m.Hi = m.Regs[rs]; return seguir }
	case fnMtlo:
		return func(m *Maquina) control { m.Lo = m.Regs[rs]; return seguir }
	case fnMult, fnMultu:
		return func(m *Maquina) control { m.multiplicar(fn, m.Regs[rs], m.Regs[rt]); return seguir }
	case fnDiv, fnDivu:
		return func(m *Maquina) control { m.dividir(fn, m.Regs[rs], m.Regs[rt]); return seguir }
	}
	// jr, jalr, syscall, break y lo desconocido
	return nil
}
