package dynacrud

import "time"

// FieldType names the storage type of an entity field.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeNumber    FieldType = "number"
	TypeBoolean   FieldType = "boolean"
	TypeDate      FieldType = "date"
	TypeBinary    FieldType = "binary"
	TypeMap       FieldType = "map"
	TypeList      FieldType = "list"
	TypeStringSet FieldType = "stringSet"
	TypeNumberSet FieldType = "numberSet"
)

// Value generators usable in Field.Generate.
const (
	GenerateUUID = "uuid" // random UUID string, string fields only
	GenerateNow  = "now"  // current clock time, number (epoch millis) or date fields
)

// Field describes a single attribute of an entity.
type Field struct {
	Type     FieldType `yaml:"type" validate:"required,oneof=string number boolean date binary map list stringSet numberSet"`
	HashKey  bool      `yaml:"hashKey,omitempty"`
	RangeKey bool      `yaml:"rangeKey,omitempty"`
	Required bool      `yaml:"required,omitempty"`
	Default  any       `yaml:"default,omitempty"`
	Generate string    `yaml:"generate,omitempty" validate:"omitempty,oneof=uuid now"`
}

// Throughput configures table capacity. OnDemand selects PAY_PER_REQUEST billing
// and ignores Read and Write.
type Throughput struct {
	Read     int64 `yaml:"read,omitempty" validate:"gte=0"`
	Write    int64 `yaml:"write,omitempty" validate:"gte=0"`
	OnDemand bool  `yaml:"onDemand,omitempty"`
}

// Timestamps names the attributes maintained on create and update. Empty names
// disable the corresponding timestamp.
type Timestamps struct {
	CreatedAt string `yaml:"createdAt,omitempty"`
	UpdatedAt string `yaml:"updatedAt,omitempty"`
}

// EntityOptions holds the storage options of an entity.
type EntityOptions struct {
	Throughput  Throughput `yaml:"throughput,omitempty"`
	Timestamps  Timestamps `yaml:"timestamps,omitempty"`
	SaveUnknown bool       `yaml:"saveUnknown,omitempty"`
}

// EntityDescriptor declares the fields and options of one table.
//
//	countries := dynacrud.EntityDescriptor{
//	    Fields: map[string]dynacrud.Field{
//	        "id":          {Type: dynacrud.TypeString, HashKey: true, Generate: dynacrud.GenerateUUID},
//	        "name":        {Type: dynacrud.TypeString, Required: true},
//	        "countryCode": {Type: dynacrud.TypeString, Required: true},
//	        "isDeleted":   {Type: dynacrud.TypeBoolean, Default: false},
//	    },
//	}
type EntityDescriptor struct {
	Fields  map[string]Field `yaml:"fields" validate:"required,min=1,dive"`
	Options EntityOptions    `yaml:"options,omitempty"`
}

// Attributes is a record's attribute set keyed by field name.
type Attributes = map[string]any

// Clock is a function type that returns the current time for dependency injection.
type Clock func() time.Time

// DefaultClock returns the current UTC time.
func DefaultClock() time.Time {
	return time.Now().UTC()
}
