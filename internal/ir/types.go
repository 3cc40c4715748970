package ir

// Interface is a versioned service interface description.
//
// Versions lists semantic versions in strictly increasing order; the last one
// is the latest. Operations keep declaration order, which is the order
// variants appear in the compiled envelope.
type Interface struct {
	Name       string      `json:"name" yaml:"name"`
	Versions   []string    `json:"versions" yaml:"versions"`
	Operations []Operation `json:"operations" yaml:"operations"`
}

// Operation is a single operation signature.
// Versions holds version-range expressions; an empty list means the
// operation is active at every version.
type Operation struct {
	Name     string   `json:"name" yaml:"name"`
	Params   []Param  `json:"params" yaml:"params"`
	Returns  string   `json:"returns" yaml:"returns"`
	Versions []string `json:"versions,omitempty" yaml:"versions,omitempty"`
}

// Param is a named, typed operation parameter.
// Its Versions constraint is independent of the owning operation's.
type Param struct {
	Name     string   `json:"name" yaml:"name"`
	Type     string   `json:"type" yaml:"type"`
	Versions []string `json:"versions,omitempty" yaml:"versions,omitempty"`
}

// Type names accepted for parameters and returns.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeBool   = "bool"
	TypeArray  = "array"
	TypeObject = "object"

	// TypeUnit is only valid as a return type.
	TypeUnit = "unit"
)

// ValidParamTypes defines the allowed type strings for parameters.
// NO "float" - floats are forbidden (values must compare exactly after migration).
var ValidParamTypes = map[string]bool{
	TypeString: true,
	TypeInt:    true,
	TypeBool:   true,
	TypeArray:  true,
	TypeObject: true,
}

// ValidReturnTypes defines the allowed type strings for operation returns.
var ValidReturnTypes = map[string]bool{
	TypeString: true,
	TypeInt:    true,
	TypeBool:   true,
	TypeArray:  true,
	TypeObject: true,
	TypeUnit:   true,
}

// ReturnType returns the operation's return type, treating empty as unit.
func (o Operation) ReturnType() string {
	if o.Returns == "" {
		return TypeUnit
	}
	return o.Returns
}

// Latest returns the last declared version, or "" if none are declared.
func (i *Interface) Latest() string {
	if len(i.Versions) == 0 {
		return ""
	}
	return i.Versions[len(i.Versions)-1]
}

// Operation looks up an operation by name.
func (i *Interface) Operation(name string) (Operation, bool) {
	for _, op := range i.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// DefaultValue returns the canonical default for a type.
// Used to fill parameters added between versions.
func DefaultValue(typ string) IRValue {
	switch typ {
	case TypeString:
		return IRString("")
	case TypeInt:
		return IRInt(0)
	case TypeBool:
		return IRBool(false)
	case TypeArray:
		return IRArray{}
	case TypeObject:
		return IRObject{}
	default:
		return IRNull{}
	}
}

// Conforms reports whether v is a value of the named type.
func Conforms(v IRValue, typ string) bool {
	switch typ {
	case TypeString:
		_, ok := v.(IRString)
		return ok
	case TypeInt:
		_, ok := v.(IRInt)
		return ok
	case TypeBool:
		_, ok := v.(IRBool)
		return ok
	case TypeArray:
		_, ok := v.(IRArray)
		return ok
	case TypeObject:
		_, ok := v.(IRObject)
		return ok
	case TypeUnit:
		_, ok := v.(IRNull)
		return ok
	default:
		return false
	}
}
