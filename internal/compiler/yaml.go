package compiler

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/JayJeyaruban/arrpc/internal/ir"
)

// LoadYAML decodes one interface per YAML document in r.
// Field names match ir.Interface's yaml tags; unknown fields are rejected.
func LoadYAML(r io.Reader) ([]*ir.Interface, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var out []*ir.Interface
	for doc := 0; ; doc++ {
		var iface ir.Interface
		err := dec.Decode(&iface)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("yaml document %d", doc),
				Message: err.Error(),
			}
		}
		normalize(&iface)
		out = append(out, &iface)
	}
	return out, nil
}

// normalize fills the implicit parts of a description: an omitted return
// type is unit and an omitted parameter list is empty.
func normalize(iface *ir.Interface) {
	for i := range iface.Operations {
		op := &iface.Operations[i]
		op.Returns = op.ReturnType()
		if op.Params == nil {
			op.Params = []ir.Param{}
		}
	}
}
