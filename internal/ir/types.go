package ir

import "strings"

// ValueType is the primitive type tag carried by instructions and stack slots
type ValueType int

const (
	Invalid ValueType = iota
	None
	I64
	F64
)

func (t ValueType) String() string {
	switch t {
	case None:
		return "none"
	case I64:
		return "i64"
	case F64:
		return "f64"
	default:
		return "invalid"
	}
}

// Suffix is the one-letter postfix used in IR listings
func (t ValueType) Suffix() string {
	switch t {
	case I64:
		return "I"
	case F64:
		return "F"
	case None:
		return "N"
	default:
		return "?"
	}
}

// ParseType maps a type name from the tree to a primitive type.
// Pointer types (anything ending in '*') are 64-bit integers.
func ParseType(name string) ValueType {
	if strings.HasSuffix(name, "*") {
		return I64
	}
	switch name {
	case "i64", "long", "int64":
		return I64
	case "f64", "double", "float64":
		return F64
	case "none", "void", "":
		return None
	default:
		return Invalid
	}
}
