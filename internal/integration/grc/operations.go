package grc

import (
	"fmt"

	"github.com/tombee/grcconnector/internal/operation/api"
)

var operationVerbs = map[Operation]string{
	OpCreate: "Create a %s",
	OpGet:    "Get a %s by ID",
	OpList:   "List %s records",
	OpUpdate: "Update a %s",
	OpDelete: "Delete a %s",
}

func describe(d ResourceDef, op Operation) string {
	return fmt.Sprintf(operationVerbs[op], d.Display)
}

func tagsFor(op Operation) []string {
	switch op {
	case OpList:
		return []string{"read", "paginated"}
	case OpGet:
		return []string{"read"}
	case OpDelete:
		return []string{"write", "destructive"}
	default:
		return []string{"write"}
	}
}

// Operations returns the list of available operations.
func (g *GRCIntegration) Operations() []api.OperationInfo {
	return Operations()
}

// OperationSchema returns the schema for an operation.
func (g *GRCIntegration) OperationSchema(name string) *api.OperationSchema {
	return OperationSchema(name)
}

// Operations returns metadata for every operation in table order.
func Operations() []api.OperationInfo {
	var out []api.OperationInfo
	for _, d := range Resources {
		for _, op := range d.Operations {
			out = append(out, api.OperationInfo{
				Name:        d.OperationName(op),
				Description: describe(d, op),
				Category:    string(d.Kind),
				Tags:        tagsFor(op),
			})
		}
	}
	return out
}

// OperationSchema describes the parameters of an operation, or returns nil
// for an unknown name.
func OperationSchema(name string) *api.OperationSchema {
	ep, ok := LookupEndpoint(name)
	if !ok {
		return nil
	}
	d, _ := ResourceByKind(ep.Resource)

	schema := &api.OperationSchema{
		Description: describe(d, ep.Operation),
		Method:      ep.Method,
		Path:        ep.Path,
	}

	for _, p := range api.PathParams(ep.Path) {
		desc := fmt.Sprintf("%s ID", d.Display)
		if p != "id" {
			desc = fmt.Sprintf("Parent %s", p)
		}
		schema.Parameters = append(schema.Parameters, api.ParameterInfo{
			Name: p, Type: string(TypeString), Description: desc, Required: true,
		})
	}
	for _, f := range ep.Body {
		schema.Parameters = append(schema.Parameters, api.ParameterInfo{
			Name:        f.Input,
			Type:        string(f.Type),
			Description: f.Description,
			Required:    f.Required && ep.Operation == OpCreate,
		})
	}
	for _, f := range ep.Query {
		schema.Parameters = append(schema.Parameters, api.ParameterInfo{
			Name: f.Input, Type: string(f.Type), Description: f.Description,
		})
	}
	for _, p := range ep.ArrayParams {
		schema.Parameters = append(schema.Parameters, api.ParameterInfo{
			Name: p.Name, Type: string(TypeArray), Description: p.Description + " (list or comma-separated)",
		})
	}
	if ep.Paginated {
		schema.Parameters = append(schema.Parameters,
			api.ParameterInfo{Name: InputReturnAll, Type: string(TypeBoolean), Description: "Fetch every page", Default: false},
			api.ParameterInfo{Name: InputLimit, Type: string(TypeInteger), Description: fmt.Sprintf("Maximum records when return_all is false (1-%d)", MaxPageSize), Default: DefaultLimit},
			api.ParameterInfo{Name: InputMaxPages, Type: string(TypeInteger), Description: "Stop after this many pages when return_all is set (0 = no cap)", Default: 0},
		)
	}
	return schema
}
