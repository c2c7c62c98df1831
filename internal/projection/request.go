package projection

import (
	"strconv"
	"strings"

	"github.com/roach88/populate/internal/memberpath"
	"github.com/roach88/populate/internal/populate"
)

// Request asks for the projection of Source records into Destination
// records, selecting what Analyzer selects below Root.
type Request struct {
	Source      string
	Destination string
	Analyzer    *populate.Analyzer
	Root        memberpath.Path
}

// Key is the structural identity of the request: the shape pair, the root
// path and the content of the expanded populate key set. Key order and
// letter case do not matter. Every component is length-prefixed, so no
// name can forge the boundary between two components.
func (r Request) Key() string {
	var b strings.Builder
	writeKeyPart(&b, strings.ToLower(r.Source))
	writeKeyPart(&b, strings.ToLower(r.Destination))
	writeKeyPart(&b, r.Root.Value())
	if r.Analyzer != nil {
		keys := r.Analyzer.Keys().Keys()
		b.WriteString(strconv.Itoa(len(keys)))
		b.WriteByte('#')
		for _, k := range keys {
			writeKeyPart(&b, k)
		}
	}
	return b.String()
}

func writeKeyPart(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

// Equal reports structural equality.
func (r Request) Equal(other Request) bool {
	return strings.EqualFold(r.Source, other.Source) &&
		strings.EqualFold(r.Destination, other.Destination) &&
		r.Root == other.Root &&
		r.Analyzer.Equal(other.Analyzer)
}
