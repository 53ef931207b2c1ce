package grc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/tombee/grcconnector/internal/operation"
)

// FieldType is the JSON type an input is converted to before sending.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
	TypeDate    FieldType = "date"
)

// Field maps an operation input to an API field.
type Field struct {
	// Input is the name callers use (e.g. "owner").
	Input string

	// API is the JSON field or query parameter name (e.g. "owner_id").
	API string

	Type        FieldType
	Required    bool
	Description string
}

// ArrayParam is a multi-value list filter sent as repeated name[]=value pairs.
type ArrayParam struct {
	Name        string
	Description string
	Encode      bool
}

func field(input, api string, t FieldType, desc string) Field {
	return Field{Input: input, API: api, Type: t, Description: desc}
}

// multi declares a list filter whose values are percent-encoded.
func multi(name, desc string) ArrayParam {
	return ArrayParam{Name: name, Description: desc, Encode: true}
}

func required(f Field) Field {
	f.Required = true
	return f
}

// Shared field definitions.
var (
	fieldName        = field("name", "name", TypeString, "Display name")
	fieldTitle       = field("title", "title", TypeString, "Title")
	fieldDescription = field("description", "description", TypeString, "Free-text description")
	fieldStatus      = field("status", "status", TypeString, "Workflow status")
	fieldOwner       = field("owner", "owner_id", TypeInteger, "ID of the owning user")
	fieldLabels      = field("labels", "label_ids", TypeArray, "IDs of labels to attach")
	fieldCustom      = field("custom_fields", "custom_field_values", TypeObject, "Custom field values keyed by custom field ID")
	fieldDueDate     = field("due_date", "due_date", TypeDate, "Due date (YYYY-MM-DD)")
	fieldCriticality = field("criticality", "criticality", TypeString, "Criticality (low, medium, high, critical)")
	fieldSearch      = field("search", "q", TypeString, "Free-text search")
)

// coerce converts an input value to the field's wire type.
func (f Field) coerce(value interface{}) (interface{}, error) {
	invalid := func(cause error) error {
		msg := fmt.Sprintf("parameter %s must be %s", f.Input, article(f.Type))
		if cause != nil {
			msg += ": " + cause.Error()
		}
		return operation.NewValidationError(msg, fmt.Sprintf("Pass %s as %s", f.Input, article(f.Type)))
	}

	switch f.Type {
	case TypeInteger:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != float64(int(v)) {
				return nil, invalid(nil)
			}
			return int(v), nil
		case json.Number:
			n, err := strconv.Atoi(v.String())
			if err != nil {
				return nil, invalid(err)
			}
			return n, nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, invalid(nil)
			}
			return n, nil
		}
		return nil, invalid(nil)

	case TypeNumber:
		switch v := value.(type) {
		case int:
			return float64(v), nil
		case float64:
			return v, nil
		case json.Number:
			return v.Float64()
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, invalid(nil)
			}
			return n, nil
		}
		return nil, invalid(nil)

	case TypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, invalid(nil)
			}
			return b, nil
		}
		return nil, invalid(nil)

	case TypeArray:
		switch v := value.(type) {
		case string:
			return lo.Map(splitCommaList(v), func(s string, _ int) interface{} {
				if n, err := strconv.Atoi(s); err == nil {
					return n
				}
				return s
			}), nil
		case []interface{}, []string, []int:
			return v, nil
		}
		return []interface{}{value}, nil

	case TypeObject:
		switch v := value.(type) {
		case map[string]interface{}:
			return v, nil
		case string:
			var obj map[string]interface{}
			if err := json.Unmarshal([]byte(v), &obj); err != nil {
				return nil, invalid(nil)
			}
			return obj, nil
		}
		return nil, invalid(nil)

	case TypeDate:
		s, ok := value.(string)
		if !ok {
			return nil, invalid(nil)
		}
		s = strings.TrimSpace(s)
		if _, err := time.Parse(time.DateOnly, s); err == nil {
			return s, nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, invalid(nil)
		}
		return t.Format(time.DateOnly), nil
	}

	return fmt.Sprint(value), nil
}

func article(t FieldType) string {
	switch t {
	case TypeInteger, TypeArray, TypeObject:
		return "an " + string(t)
	case TypeDate:
		return "a date (YYYY-MM-DD)"
	}
	return "a " + string(t)
}
