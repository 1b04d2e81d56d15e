package types

// Sub input of a composite field, e.g. the first name part of a name field.
//
// Inputs without a key cannot hold values.
type SubInputDefinition struct {
	Key   string `json:"key"   mapstructure:"key"`
	Label string `json:"label" mapstructure:"label" validate:"required"`
}

type FieldDefinition struct {
	// Form platform field id. Always handled as a string, "21" and "21.3" are distinct keys.
	ID         string               `json:"id"                    mapstructure:"id"          validate:"required"`
	Label      string               `json:"label"                 mapstructure:"label"       validate:"required"`
	AdminLabel string               `json:"admin_label,omitempty" mapstructure:"admin_label"`
	Inputs     []SubInputDefinition `json:"inputs,omitempty"      mapstructure:"inputs"      validate:"dive"`
}

// Resolved label of the field itself: the admin label when set, the label otherwise
func (f FieldDefinition) ResolvedLabel() string {
	if f.AdminLabel != "" {
		return f.AdminLabel
	}

	return f.Label
}

// Ordered field definitions of one form version
type FormSchema struct {
	Fields []FieldDefinition `json:"fields" validate:"required,dive"`
}

// Submitted values keyed by field id or sub input key. A nil value is a submitted null.
type RawEntry map[string]*string

type FormResponse struct {
	FormID  string     `json:"form_id" validate:"required,uuid_rfc4122" format:"uuid"`
	Title   string     `json:"title"   validate:"required"`
	Version int        `json:"version" validate:"required"`
	Active  bool       `json:"active"`
	Schema  FormSchema `json:"schema"  validate:"required"`
}

type FormUpdate struct {
	Title string `json:"title"   validate:"required"`
	// Version the update was based on. Rejected with a conflict when stale.
	Version *int  `json:"version" validate:"required"`
	Active  *bool `json:"active"`
	// Raw schema, checked against the embedded form schema before decoding
	Schema map[string]any `json:"schema" validate:"required"`
}
