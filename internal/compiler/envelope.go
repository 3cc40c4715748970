package compiler

import (
	"github.com/JayJeyaruban/arrpc/internal/ir"
)

// CompileEnvelope builds the envelope of iface: one variant per operation
// active at the latest version, carrying the parameters active there in
// declaration order. Dead operations and parameters are dropped and
// reported as diagnostics.
func CompileEnvelope(iface *ir.Interface) (*ir.Envelope, []ir.Diagnostic, error) {
	m, err := resolve(iface)
	if err != nil {
		return nil, nil, err
	}
	env := m.envelope()
	return &env, m.diagnostics, nil
}

func (m *model) envelope() ir.Envelope {
	shape := m.shapeAt(m.latest())
	return ir.Envelope{
		Interface: m.iface.Name,
		Version:   shape.Version,
		Variants:  shape.Variants,
	}
}
