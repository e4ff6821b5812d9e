package domain

type AttributeKind string

const (
	AttributeCapacity        AttributeKind = "capacity"
	AttributeCapacityUnknown AttributeKind = "capacity_unknown"
	AttributeSet             AttributeKind = "set"
	AttributeOther           AttributeKind = "other_attribute"
)

// Attribute is a tagged union over the four attribute shapes. Kind selects
// which payload fields are meaningful:
//
//	capacity         : Unit, ItemCount, ItemCapacity
//	capacity_unknown : Description
//	set              : Unit, ItemCount
//	other_attribute  : Description
type Attribute struct {
	ID           int64
	Kind         AttributeKind
	Unit         string
	ItemCount    int
	ItemCapacity float64
	Description  string
}
