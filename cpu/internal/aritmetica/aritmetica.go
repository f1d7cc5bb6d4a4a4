// Package aritmetica tiene las primitivas de 32 y 64 bits que usa la CPU para mult y divisiones.
// Los valores de 64 bits viajan como pares [alto, bajo] igual que los registros HI/LO.
package aritmetica

// Par es un valor de 64 bits partido en [alto, bajo].
type Par [2]uint32

// Unsigned reinterpreta los bits de x como sin signo.
func Unsigned(x int32) uint32 {
	return uint32(x)
}

// Signed reinterpreta los bits de x como complemento a dos.
func Signed(x uint32) int32 {
	return int32(x)
}

// Add32 suma módulo 2^32.
func Add32(x, y uint32) uint32 {
	return x + y
}

// Add64 suma módulo 2^64 propagando el acarreo de la parte baja.
func Add64(x, y Par) Par {
	bajo := x[1] + y[1]
	var acarreo uint32
	if bajo < x[1] {
		acarreo = 1
	}
	return Par{x[0] + y[0] + acarreo, bajo}
}

// Neg64 es el complemento a dos de x.
func Neg64(x Par) Par {
	return Add64(Par{^x[0], ^x[1]}, Par{0, 1})
}

// Sub64 es x-y módulo 2^64.
func Sub64(x, y Par) Par {
	return Add64(x, Neg64(y))
}

// Mul32 devuelve el producto sin signo completo de x*y partiendo cada operando en mitades de 16 bits:
// x*y = a<<32 + c<<16 + b, con a = x1*y1, b = x2*y2 y c = (x1+x2)(y1+y2) - a - b.
func Mul32(x, y uint32) Par {
	x1, x2 := x>>16, x&0xFFFF
	y1, y2 := y>>16, y&0xFFFF
	x3, y3 := x1+x2, y1+y2

	a := Par{0, x1 * y1}
	b := Par{0, x2 * y2}

	var c Par
	if x3 > 0xFFFF || y3 > 0xFFFF {
		// no entra en 32 bits, hay que recursar
		c = Mul32(x3, y3)
	} else {
		c = Par{0, x3 * y3}
	}
	c = Sub64(c, a)
	c = Sub64(c, b)

	// c < 2^33, así que desplazarlo 16 bits nunca pierde nada
	medio := Par{(c[0]&0xFFFF)<<16 | c[1]>>16, c[1] << 16}
	b = Add64(b, medio)
	return Add64(b, Par{a[1], 0})
}

// Mul32Signed es el producto de x e y interpretados en complemento a dos.
func Mul32Signed(x, y uint32) Par {
	p := Mul32(x, y)
	if Signed(x) < 0 {
		p[0] -= y
	}
	if Signed(y) < 0 {
		p[0] -= x
	}
	return p
}
