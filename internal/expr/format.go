package expr

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/populate/internal/shape"
)

// Format renders n as a single line of text. The rendering is canonical:
// structurally equal trees render identically, and string literals are
// NFC-normalized.
//
//	p.orders.any(x1 => (x1.total >= 100))
//	CustomerView{id: p.id, city: p.address.city}
func Format(n Node) string {
	var b strings.Builder
	write(&b, n)
	return b.String()
}

// Fingerprint hashes the canonical rendering of n.
func Fingerprint(n Node) uint64 {
	return xxhash.Sum64String(Format(n))
}

func write(b *strings.Builder, n Node) {
	switch x := n.(type) {
	case nil:
		b.WriteString("<nil>")
	case *Param:
		b.WriteString(x.Name)
	case *Member:
		write(b, x.Target)
		b.WriteByte('.')
		b.WriteString(x.Name)
	case *Const:
		writeValue(b, x.Value, x.T)
	case *Binary:
		b.WriteByte('(')
		write(b, x.Left)
		b.WriteByte(' ')
		b.WriteString(x.Op.String())
		b.WriteByte(' ')
		write(b, x.Right)
		b.WriteByte(')')
	case *Not:
		b.WriteByte('!')
		write(b, x.Operand)
	case *Call:
		write(b, x.Target)
		b.WriteByte('.')
		b.WriteString(x.Method.String())
		b.WriteByte('(')
		for i, a := range x.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			write(b, a)
		}
		b.WriteByte(')')
	case *Lambda:
		b.WriteString(x.Param.Name)
		b.WriteString(" => ")
		write(b, x.Body)
	case *Conditional:
		b.WriteByte('(')
		write(b, x.Test)
		b.WriteString(" ? ")
		write(b, x.Then)
		b.WriteString(" : ")
		write(b, x.Else)
		b.WriteByte(')')
	case *Record:
		b.WriteString(x.Shape)
		b.WriteByte('{')
		for i, f := range x.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			b.WriteString(": ")
			write(b, f.Value)
		}
		b.WriteByte('}')
	}
}

func writeValue(b *strings.Builder, v any, t shape.Type) {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
		return
	case []any:
		elem := t
		if t.IsCollection() {
			elem = *t.Elem
		}
		b.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, item, elem)
		}
		b.WriteByte(']')
		return
	}

	text := shape.ToText(v)
	switch t.Leaf().Kind {
	case shape.KindInt, shape.KindFloat, shape.KindDecimal, shape.KindBool:
		b.WriteString(text)
	default:
		b.WriteString(strconv.Quote(norm.NFC.String(text)))
	}
}
