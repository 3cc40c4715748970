package ir

// Field is one parameter carried by an envelope variant.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Variant is one arm of the envelope tagged union.
// Tag is the wire discriminant: the operation name in PascalCase.
type Variant struct {
	Operation string  `json:"operation"`
	Tag       string  `json:"tag"`
	Fields    []Field `json:"fields"`
	Returns   string  `json:"returns"`
}

// FieldNames returns the variant's field names in declaration order.
func (v Variant) FieldNames() []string {
	names := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a field by name.
func (v Variant) Field(name string) (Field, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Shape is the structural subset of the envelope valid at one version.
type Shape struct {
	Version  string    `json:"version"`
	Variants []Variant `json:"variants"`
}

// Variant looks up a variant by tag.
func (s Shape) Variant(tag string) (Variant, bool) {
	for _, v := range s.Variants {
		if v.Tag == tag {
			return v, true
		}
	}
	return Variant{}, false
}

// Envelope is the shape at the latest version of an interface.
// It is the single run-time call type used on the wire going forward.
type Envelope struct {
	Interface string    `json:"interface"`
	Version   string    `json:"version"`
	Variants  []Variant `json:"variants"`
}

// Shape returns the envelope viewed as a shape.
func (e Envelope) Shape() Shape {
	return Shape{Version: e.Version, Variants: e.Variants}
}

// MigrationArm maps one variant of the older shape onto the newer one.
// Carried fields are re-bound by name; Defaulted fields are appended with
// their type's canonical default.
type MigrationArm struct {
	Tag       string   `json:"tag"`
	Carried   []string `json:"carried"`
	Defaulted []Field  `json:"defaulted"`
}

// MigrationStep upgrades values of shape From into shape To.
// Arms cover every variant of From, so the step is total.
type MigrationStep struct {
	From string         `json:"from"`
	To   string         `json:"to"`
	Arms []MigrationArm `json:"arms"`
}

// Identity reports whether the step changes nothing.
func (m MigrationStep) Identity() bool {
	for _, arm := range m.Arms {
		if len(arm.Defaulted) > 0 {
			return false
		}
	}
	return true
}

// Arm looks up the arm for a tag.
func (m MigrationStep) Arm(tag string) (MigrationArm, bool) {
	for _, arm := range m.Arms {
		if arm.Tag == tag {
			return arm, true
		}
	}
	return MigrationArm{}, false
}

// Diagnostic is a non-fatal compiler finding (e.g. dead code).
type Diagnostic struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Compiled holds every artifact produced for one interface.
type Compiled struct {
	Interface   Interface       `json:"interface"`
	Envelope    Envelope        `json:"envelope"`
	Shapes      []Shape         `json:"shapes"`
	Migrations  []MigrationStep `json:"migrations"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
	Fingerprint string          `json:"fingerprint"`
}

// Shape returns the shape for a version.
func (c *Compiled) Shape(version string) (Shape, bool) {
	for _, s := range c.Shapes {
		if s.Version == version {
			return s, true
		}
	}
	return Shape{}, false
}

// Chain returns the migration steps that take a value at version from up to
// the latest version, in application order. An unknown version returns false.
func (c *Compiled) Chain(from string) ([]MigrationStep, bool) {
	for i, s := range c.Shapes {
		if s.Version == from {
			return c.Migrations[i:], true
		}
	}
	return nil, false
}
