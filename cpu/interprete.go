package cpu

// ejecutar interpreta op, ubicada en opc. pc y npc ya avanzaron: un branch solo tiene que pisar npc.
func (m *Maquina) ejecutar(opc, op uint32) {
	codigo := op >> 26
	switch {
	case codigo == opEspecial:
		m.tipoR(opc, op)
	case codigo == opJ || codigo == opJal:
		m.tipoJ(opc, op)
	case esIgnorada(codigo):
	default:
		m.tipoI(opc, op)
	}
}

func (m *Maquina) tipoR(opc, op uint32) {
	rs, rt, rd, sa, fn := campos(op)
	if f := tablaR[fn]; f != nil {
		m.Regs[rd] = f(m.Regs[rs], m.Regs[rt], sa)
		return
	}

	switch fn {
	case fnJr:
		m.NPC = m.Regs[rs]
	case fnJalr:
		destino := m.Regs[rs]
		m.Regs[rd] = opc + 8
		m.NPC = destino
	case fnMovz:
		if m.Regs[rt] == 0 {
			m.Regs[rd] = m.Regs[rs]
		}
	case fnMovn:
		if m.Regs[rt] != 0 {
			m.Regs[rd] = m.Regs[rs]
		}
	case fnSyscall:
		m.syscall(opc)
	case fnBreak:
		m.Stop()
	case fnSync, fnReservado:
	case fnMfhi:
		m.Regs[rd] = m.Hi
	case fnMthi:
		m.Hi = m.Regs[rs]
	case fnMflo:
		m.Regs[rd] = m.Lo
	case fnMtlo:
		m.Lo = m.Regs[rs]
	case fnMult, fnMultu:
		m.multiplicar(fn, m.Regs[rs], m.Regs[rt])
	case fnDiv, fnDivu:
		m.dividir(fn, m.Regs[rs], m.Regs[rt])
	default:
		m.fallar(errInstruccion(op, opc))
	}
}

func (m *Maquina) tipoJ(opc, op uint32) {
	if op>>26 == opJal {
		m.Regs[31] = opc + 8
	}
	m.NPC = destinoJ(opc, op)
}

func (m *Maquina) tipoI(opc, op uint32) {
	codigo := op >> 26
	rs, rt, rd, _, fn := campos(op)
	imm := op & 0xFFFF

	if f := tablaI[codigo]; f != nil {
		m.Regs[rt] = f(m.Regs[rs], imm)
		return
	}

	switch {
	case codigo == opRegimm:
		if rt&0x0E != 0 {
			m.fallar(errInstruccion(op, opc))
			return
		}
		tomar := int32(m.Regs[rs]) < 0
		if rt&1 != 0 {
			tomar = !tomar
		}
		if rt&0x10 != 0 {
			m.Regs[31] = opc + 8
		}
		if tomar {
			m.NPC = destinoSalto(opc, imm)
		}
	case codigo == opBeq:
		if m.Regs[rs] == m.Regs[rt] {
			m.NPC = destinoSalto(opc, imm)
		}
	case codigo == opBne:
		if m.Regs[rs] != m.Regs[rt] {
			m.NPC = destinoSalto(opc, imm)
		}
	case codigo == opBlez:
		if int32(m.Regs[rs]) <= 0 {
			m.NPC = destinoSalto(opc, imm)
		}
	case codigo == opBgtz:
		if int32(m.Regs[rs]) > 0 {
			m.NPC = destinoSalto(opc, imm)
		}
	case esCarga(codigo):
		m.Regs[rt] = cargar(m.Mem, codigo, m.Regs[rs]+sext(imm), m.Regs[rt])
	case esAlmacenamiento(codigo):
		almacenar(m.Mem, codigo, m.Regs[rs]+sext(imm), m.Regs[rt])
		if codigo == opSc {
			m.Regs[rt] = 1
		}
	case codigo == opEspecial2 && tablaE2[fn] != nil:
		m.Regs[rd] = tablaE2[fn](m.Regs[rs], m.Regs[rt])
	case codigo == opEspecial3 && especial3Soportada(op):
		m.especial3(op)
	default:
		m.fallar(errInstruccion(op, opc))
	}
}
