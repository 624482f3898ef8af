package llm

// SchemaType mirrors the JSON schema primitive types the services need.
type SchemaType string

const (
	TypeObject SchemaType = "object"
	TypeArray  SchemaType = "array"
	TypeString SchemaType = "string"
)

// Schema is a provider-neutral response schema. The structured backend translates it to its
// native form; the chat backend ignores it.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
	MinItems    *int64
	MaxItems    *int64
}

func intPtr(v int64) *int64 {
	return &v
}

func stringArray(min, max int64) *Schema {
	return &Schema{
		Type:     TypeArray,
		Items:    &Schema{Type: TypeString},
		MinItems: intPtr(min),
		MaxItems: intPtr(max),
	}
}

func outlinesSchema() *Schema {
	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"outlines": {
				Type: TypeArray,
				Items: &Schema{
					Type: TypeObject,
					Properties: map[string]*Schema{
						"style":       {Type: TypeString, Description: "Short label for the tone or style"},
						"description": {Type: TypeString, Description: "How the document reads in this style"},
						"chapters":    stringArray(minChapters, maxChapters),
					},
					Required: []string{"style", "description", "chapters"},
				},
				MinItems: intPtr(OutlineCount),
				MaxItems: intPtr(OutlineCount),
			},
		},
		Required: []string{"outlines"},
	}
}

func detailsSchema() *Schema {
	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"details": stringArray(minPoints, maxPoints),
		},
		Required: []string{"details"},
	}
}
