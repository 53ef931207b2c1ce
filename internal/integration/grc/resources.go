package grc

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/tombee/grcconnector/internal/operation/api"
)

// Resource is an entity type exposed by the GRC API.
type Resource string

const (
	ResourceAsset           Resource = "asset"
	ResourceControl         Resource = "control"
	ResourceRisk            Resource = "risk"
	ResourceVendor          Resource = "vendor"
	ResourceFinding         Resource = "finding"
	ResourceTask            Resource = "task"
	ResourceFramework       Resource = "framework"
	ResourceRequirement     Resource = "requirement"
	ResourceLabel           Resource = "label"
	ResourceCustomField     Resource = "custom_field"
	ResourceUser            Resource = "user"
	ResourceUserGroup       Resource = "user_group"
	ResourceBusinessProcess Resource = "business_process"
)

// Operation is an action on a resource.
type Operation string

const (
	OpCreate Operation = "create"
	OpGet    Operation = "get"
	OpList   Operation = "list"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

var (
	crud     = []Operation{OpCreate, OpGet, OpList, OpUpdate, OpDelete}
	readOnly = []Operation{OpGet, OpList}
)

// ResourceDef describes one resource kind and the fields of its endpoints.
type ResourceDef struct {
	Kind    Resource
	Plural  string
	Display string

	// Path is the collection path; item paths append /{id}.
	Path string

	// Fields are the writable body fields for create and update.
	Fields []Field

	// Filters are scalar query parameters for list.
	Filters []Field

	// ArrayParams are multi-value list filters.
	ArrayParams []ArrayParam

	Operations []Operation
}

// Resources is the table of every resource the connector exposes.
var Resources = []ResourceDef{
	{
		Kind: ResourceAsset, Plural: "assets", Display: "Asset", Path: "/assets",
		Fields: []Field{
			required(fieldName),
			fieldDescription,
			field("asset_type", "type", TypeString, "Asset type (hardware, software, data, service)"),
			fieldOwner,
			fieldStatus,
			fieldCriticality,
			fieldLabels,
			fieldCustom,
		},
		Filters: []Field{fieldSearch},
		ArrayParams: []ArrayParam{
			multi("status", "Only assets with these statuses"),
			multi("type", "Only assets of these types"),
			multi("owner_ids", "Only assets owned by these users"),
			multi("label_ids", "Only assets with these labels"),
		},
		Operations: crud,
	},
	{
		Kind: ResourceControl, Plural: "controls", Display: "Control", Path: "/controls",
		Fields: []Field{
			required(fieldName),
			field("code", "code", TypeString, "Control reference code (e.g. AC-2)"),
			fieldDescription,
			fieldOwner,
			fieldStatus,
			field("frequency", "review_frequency", TypeString, "Review frequency (monthly, quarterly, annually)"),
			fieldLabels,
			fieldCustom,
		},
		Filters: []Field{fieldSearch},
		ArrayParams: []ArrayParam{
			multi("status", "Only controls with these statuses"),
			multi("framework_ids", "Only controls mapped to these frameworks"),
			multi("owner_ids", "Only controls owned by these users"),
		},
		Operations: crud,
	},
	{
		Kind: ResourceRisk, Plural: "risks", Display: "Risk", Path: "/risks",
		Fields: []Field{
			required(fieldName),
			fieldDescription,
			field("likelihood", "likelihood", TypeInteger, "Likelihood score (1-5)"),
			field("impact", "impact", TypeInteger, "Impact score (1-5)"),
			field("treatment", "treatment", TypeString, "Treatment (accept, mitigate, transfer, avoid)"),
			fieldOwner,
			fieldStatus,
			fieldDueDate,
			fieldLabels,
			fieldCustom,
		},
		Filters: []Field{fieldSearch},
		ArrayParams: []ArrayParam{
			multi("status", "Only risks with these statuses"),
			multi("treatment", "Only risks with these treatments"),
			multi("owner_ids", "Only risks owned by these users"),
		},
		Operations: crud,
	},
	{
		Kind: ResourceVendor, Plural: "vendors", Display: "Vendor", Path: "/vendors",
		Fields: []Field{
			required(fieldName),
			fieldDescription,
			field("website", "website_url", TypeString, "Vendor website"),
			field("contact_email", "contact_email", TypeString, "Primary contact email"),
			fieldCriticality,
			fieldStatus,
			fieldOwner,
			fieldCustom,
		},
		Filters: []Field{fieldSearch},
		ArrayParams: []ArrayParam{
			multi("status", "Only vendors with these statuses"),
			multi("criticality", "Only vendors with these criticalities"),
		},
		Operations: crud,
	},
	{
		Kind: ResourceFinding, Plural: "findings", Display: "Finding", Path: "/findings",
		Fields: []Field{
			required(fieldTitle),
			fieldDescription,
			field("severity", "severity", TypeString, "Severity (low, medium, high, critical)"),
			fieldStatus,
			field("source", "source", TypeString, "Where the finding came from (audit, assessment, scan)"),
			field("control", "control_id", TypeInteger, "ID of the related control"),
			fieldOwner,
			fieldDueDate,
		},
		Filters: []Field{fieldSearch},
		ArrayParams: []ArrayParam{
			multi("severity", "Only findings with these severities"),
			multi("status", "Only findings with these statuses"),
		},
		Operations: crud,
	},
	{
		Kind: ResourceTask, Plural: "tasks", Display: "Task", Path: "/tasks",
		Fields: []Field{
			required(fieldTitle),
			fieldDescription,
			field("assignee", "assignee_id", TypeInteger, "ID of the assigned user"),
			fieldDueDate,
			fieldStatus,
			field("priority", "priority", TypeString, "Priority (low, medium, high)"),
		},
		Filters: []Field{fieldSearch},
		ArrayParams: []ArrayParam{
			multi("status", "Only tasks with these statuses"),
			multi("assignee_ids", "Only tasks assigned to these users"),
		},
		Operations: crud,
	},
	{
		Kind: ResourceFramework, Plural: "frameworks", Display: "Framework", Path: "/frameworks",
		Filters:    []Field{fieldSearch},
		Operations: readOnly,
	},
	{
		Kind: ResourceRequirement, Plural: "requirements", Display: "Requirement",
		Path:    "/frameworks/{framework_id}/requirements",
		Filters: []Field{fieldSearch},
		ArrayParams: []ArrayParam{
			multi("control_ids", "Only requirements mapped to these controls"),
		},
		Operations: readOnly,
	},
	{
		Kind: ResourceLabel, Plural: "labels", Display: "Label", Path: "/labels",
		Fields: []Field{
			required(fieldName),
			field("color", "color", TypeString, "Hex color (e.g. #ff0000)"),
			fieldDescription,
		},
		Filters:    []Field{fieldSearch},
		Operations: crud,
	},
	{
		Kind: ResourceCustomField, Plural: "custom_fields", Display: "Custom Field", Path: "/custom_fields",
		Filters: []Field{
			field("resource_type", "resource_type", TypeString, "Only fields defined for this resource type"),
		},
		Operations: readOnly,
	},
	{
		Kind: ResourceUser, Plural: "users", Display: "User", Path: "/users",
		Filters: []Field{fieldSearch},
		ArrayParams: []ArrayParam{
			multi("roles", "Only users with these roles"),
		},
		Operations: readOnly,
	},
	{
		Kind: ResourceUserGroup, Plural: "user_groups", Display: "User Group", Path: "/user_groups",
		Fields: []Field{
			required(fieldName),
			fieldDescription,
			field("members", "user_ids", TypeArray, "IDs of member users"),
		},
		Filters:    []Field{fieldSearch},
		Operations: crud,
	},
	{
		Kind: ResourceBusinessProcess, Plural: "business_processes", Display: "Business Process", Path: "/business_processes",
		Fields: []Field{
			required(fieldName),
			fieldDescription,
			fieldOwner,
			fieldCriticality,
			fieldLabels,
			fieldCustom,
		},
		Filters: []Field{fieldSearch},
		ArrayParams: []ArrayParam{
			multi("criticality", "Only processes with these criticalities"),
		},
		Operations: crud,
	},
}

// Endpoint is a single resource/operation pair resolved from the table.
type Endpoint struct {
	Name      string
	Resource  Resource
	Operation Operation
	Method    string
	Path      string

	// Required lists inputs that must be present: path parameters first,
	// then required body fields.
	Required []string

	Body        []Field
	Query       []Field
	ArrayParams []ArrayParam
	Paginated   bool
}

// OperationName returns the operation identifier for a resource/operation
// pair (e.g. "create_asset", "list_assets").
func (d ResourceDef) OperationName(op Operation) string {
	if op == OpList {
		return "list_" + d.Plural
	}
	return string(op) + "_" + string(d.Kind)
}

func (d ResourceDef) endpoint(op Operation) Endpoint {
	ep := Endpoint{
		Name:      d.OperationName(op),
		Resource:  d.Kind,
		Operation: op,
		Path:      d.Path,
	}

	switch op {
	case OpCreate:
		ep.Method = http.MethodPost
		ep.Body = d.Fields
	case OpList:
		ep.Method = http.MethodGet
		ep.Query = d.Filters
		ep.ArrayParams = d.ArrayParams
		ep.Paginated = true
	case OpGet:
		ep.Method = http.MethodGet
		ep.Path += "/{id}"
	case OpUpdate:
		ep.Method = http.MethodPatch
		ep.Path += "/{id}"
		ep.Body = d.Fields
	case OpDelete:
		ep.Method = http.MethodDelete
		ep.Path += "/{id}"
	}

	ep.Required = api.PathParams(ep.Path)
	if op == OpCreate {
		for _, f := range d.Fields {
			if f.Required {
				ep.Required = append(ep.Required, f.Input)
			}
		}
	}
	return ep
}

// endpoints indexes every operation name.
var endpoints = buildEndpoints(Resources)

func buildEndpoints(defs []ResourceDef) map[string]Endpoint {
	out := make(map[string]Endpoint)
	for _, d := range defs {
		for _, op := range d.Operations {
			ep := d.endpoint(op)
			if _, dup := out[ep.Name]; dup {
				panic(fmt.Sprintf("grc: duplicate operation %s", ep.Name))
			}
			out[ep.Name] = ep
		}
	}
	return out
}

// LookupEndpoint returns the endpoint for an operation name.
func LookupEndpoint(name string) (Endpoint, bool) {
	ep, ok := endpoints[name]
	return ep, ok
}

// ResourceByKind returns the table entry for a resource kind.
func ResourceByKind(kind Resource) (ResourceDef, bool) {
	for _, d := range Resources {
		if d.Kind == kind {
			return d, true
		}
	}
	return ResourceDef{}, false
}

// OperationNames returns every operation name, sorted.
func OperationNames() []string {
	names := make([]string, 0, len(endpoints))
	for name := range endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
