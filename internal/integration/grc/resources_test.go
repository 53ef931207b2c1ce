package grc

import (
	"slices"
	"strings"
	"testing"

	"github.com/tombee/grcconnector/internal/operation/api"
)

func TestResourceTable(t *testing.T) {
	if len(Resources) != 13 {
		t.Errorf("expected 13 resources, got %d", len(Resources))
	}

	seen := map[Resource]bool{}
	for _, d := range Resources {
		if seen[d.Kind] {
			t.Errorf("duplicate resource %s", d.Kind)
		}
		seen[d.Kind] = true

		if !strings.HasPrefix(d.Path, "/") {
			t.Errorf("%s: path %q must start with /", d.Kind, d.Path)
		}

		inputs := map[string]bool{}
		for _, f := range append(append([]Field{}, d.Fields...), d.Filters...) {
			if f.Input == "" || f.API == "" || f.Type == "" {
				t.Errorf("%s: incomplete field %+v", d.Kind, f)
			}
			if inputs[f.Input] {
				t.Errorf("%s: duplicate input %s", d.Kind, f.Input)
			}
			inputs[f.Input] = true
		}
		for _, p := range d.ArrayParams {
			if strings.HasSuffix(p.Name, "[]") {
				t.Errorf("%s: array param %s must be declared without brackets", d.Kind, p.Name)
			}
		}
	}
}

func TestEndpoints(t *testing.T) {
	for _, name := range OperationNames() {
		ep, _ := LookupEndpoint(name)
		for _, p := range api.PathParams(ep.Path) {
			if !slices.Contains(ep.Required, p) {
				t.Errorf("%s: path parameter %s not required", name, p)
			}
		}
		if ep.Paginated != (ep.Operation == OpList) {
			t.Errorf("%s: only list operations paginate", name)
		}
	}

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"create_asset", "POST", "/assets"},
		{"get_risk", "GET", "/risks/{id}"},
		{"list_business_processes", "GET", "/business_processes"},
		{"update_vendor", "PATCH", "/vendors/{id}"},
		{"delete_user_group", "DELETE", "/user_groups/{id}"},
		{"list_requirements", "GET", "/frameworks/{framework_id}/requirements"},
		{"get_requirement", "GET", "/frameworks/{framework_id}/requirements/{id}"},
		{"list_custom_fields", "GET", "/custom_fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, ok := LookupEndpoint(tt.name)
			if !ok {
				t.Fatalf("%s not found", tt.name)
			}
			if ep.Method != tt.method || ep.Path != tt.path {
				t.Errorf("got %s %s, want %s %s", ep.Method, ep.Path, tt.method, tt.path)
			}
		})
	}

	for _, missing := range []string{"create_framework", "delete_user", "update_custom_field"} {
		if _, ok := LookupEndpoint(missing); ok {
			t.Errorf("%s should not exist", missing)
		}
	}
}

func TestOperationsMetadata(t *testing.T) {
	ops := Operations()
	if len(ops) != len(OperationNames()) {
		t.Fatalf("Operations() = %d entries, want %d", len(ops), len(OperationNames()))
	}

	schema := OperationSchema("list_requirements")
	if schema == nil {
		t.Fatal("schema missing")
	}
	if schema.Parameters[0].Name != "framework_id" || !schema.Parameters[0].Required {
		t.Errorf("first parameter should be required framework_id, got %+v", schema.Parameters[0])
	}
	names := make([]string, 0, len(schema.Parameters))
	for _, p := range schema.Parameters {
		names = append(names, p.Name)
	}
	for _, want := range []string{"search", "control_ids", InputReturnAll, InputLimit, InputMaxPages} {
		if !slices.Contains(names, want) {
			t.Errorf("schema missing %s: %v", want, names)
		}
	}

	create := OperationSchema("create_asset")
	for _, p := range create.Parameters {
		if p.Name == "name" && !p.Required {
			t.Error("name should be required for create_asset")
		}
	}
	update := OperationSchema("update_asset")
	for _, p := range update.Parameters {
		if p.Name == "name" && p.Required {
			t.Error("name should be optional for update_asset")
		}
	}

	if OperationSchema("nope") != nil {
		t.Error("unknown operation should have nil schema")
	}
}

func TestFieldCoerce(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		value   interface{}
		want    interface{}
		wantErr bool
	}{
		{"int from string", fieldOwner, "12", 12, false},
		{"int from float", fieldOwner, float64(12), 12, false},
		{"int rejects fraction", fieldOwner, 1.5, nil, true},
		{"int rejects text", fieldOwner, "bob", nil, true},
		{"bool from string", field("b", "b", TypeBoolean, ""), "true", true, false},
		{"date", fieldDueDate, "2025-03-01", "2025-03-01", false},
		{"date from rfc3339", fieldDueDate, "2025-03-01T10:00:00Z", "2025-03-01", false},
		{"bad date", fieldDueDate, "March 1", nil, true},
		{"object from json", fieldCustom, `{"7":"gold"}`, map[string]interface{}{"7": "gold"}, false},
		{"string passthrough", fieldName, "Laptop", "Laptop", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.coerce(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("coerce() error = %v", err)
			}
			if m, ok := tt.want.(map[string]interface{}); ok {
				gm := got.(map[string]interface{})
				if gm["7"] != m["7"] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}

	arr, err := fieldLabels.coerce("3, 4,x")
	if err != nil {
		t.Fatal(err)
	}
	list := arr.([]interface{})
	if len(list) != 3 || list[0] != 3 || list[2] != "x" {
		t.Errorf("array coerce = %v", list)
	}
}
