package model

import (
	"strconv"
)

// EntityKind is the attribute an extracted entity describes.
type EntityKind string

const (
	EntityCategory  EntityKind = "category"
	EntityProduct   EntityKind = "product"
	EntityMaterial  EntityKind = "material"
	EntityFinish    EntityKind = "finish"
	EntityQuantity  EntityKind = "quantity"
	EntityDimension EntityKind = "dimension"
)

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	switch k {
	case EntityCategory, EntityProduct, EntityMaterial, EntityFinish, EntityQuantity, EntityDimension:
		return true
	}
	return false
}

// EntityValue is either text or a number, never both.
type EntityValue struct {
	text    string
	number  float64
	numeric bool
}

// TextValue returns a textual entity value.
func TextValue(s string) EntityValue {
	return EntityValue{text: s}
}

// NumberValue returns a numeric entity value.
func NumberValue(n float64) EntityValue {
	return EntityValue{number: n, numeric: true}
}

// Number returns the numeric value and whether the value is numeric.
func (v EntityValue) Number() (float64, bool) {
	return v.number, v.numeric
}

// String returns the value as text.
func (v EntityValue) String() string {
	if v.numeric {
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	}
	return v.text
}

// IsZero reports whether the value is empty.
func (v EntityValue) IsZero() bool {
	return !v.numeric && v.text == ""
}

// ExtractedEntity is one attribute detected in a single message. It is
// consumed within the turn that produced it and never persisted.
type ExtractedEntity struct {
	Kind       EntityKind
	Value      EntityValue
	Confidence float64
}
