package actions

// Schema is the JSON Schema subset used to describe action arguments to the
// driving runtime.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Format      string `json:"format,omitempty"`
}

func object(required []string, props map[string]Property) Schema {
	if props == nil {
		props = map[string]Property{}
	}
	return Schema{Type: "object", Properties: props, Required: required}
}

func str(desc string) Property { return Property{Type: "string", Description: desc} }

func integer(desc string) Property { return Property{Type: "integer", Description: desc} }

func number(desc string) Property { return Property{Type: "number", Description: desc} }

func date(desc string) Property { return Property{Type: "string", Format: "date", Description: desc} }

// Descriptor is the public description of one action.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Guarded     bool   `json:"guarded"`
	Parameters  Schema `json:"parameters"`
}
