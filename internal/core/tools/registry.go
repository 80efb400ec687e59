package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/vetclinic/aiadmin/internal/core/ports"
)

// Tool names as the model sees them.
const (
	ToolListKinds    = "list_kinds"
	ToolDescribeKind = "describe_kind"
	ToolListRecords  = "list_records"
	ToolGetRecord    = "get_record"
	ToolCreateRecord = "create_record"
	ToolUpdateRecord = "update_record"
	ToolDeleteRecord = "delete_record"
)

type handler func(ctx context.Context, args map[string]interface{}) Result

type entry struct {
	def     ports.ToolDefinition
	handler handler
}

// Registry is a fixed, named set of tools. It implements ports.ToolSet.
type Registry struct {
	order   []string
	tools   map[string]entry
	metrics ports.PipelineMetrics
}

var _ ports.ToolSet = (*Registry)(nil)

func newRegistry(metrics ports.PipelineMetrics) *Registry {
	return &Registry{tools: map[string]entry{}, metrics: metrics}
}

func (r *Registry) register(def ports.ToolDefinition, h handler) {
	if _, dup := r.tools[def.Name]; dup {
		panic("tools: duplicate tool " + def.Name)
	}
	r.tools[def.Name] = entry{def: def, handler: h}
	r.order = append(r.order, def.Name)
}

// FullAccess returns schema lookup plus every CRUD operation.
func FullAccess(layer *Layer, metrics ports.PipelineMetrics) *Registry {
	r := newRegistry(metrics)
	r.register(listKindsDef, func(ctx context.Context, _ map[string]interface{}) Result {
		return layer.ListKinds(ctx)
	})
	r.register(describeKindDef, func(ctx context.Context, args map[string]interface{}) Result {
		return layer.DescribeKind(ctx, stringArg(args, "kind"))
	})
	registerReads(r, layer)
	r.register(createRecordDef, func(ctx context.Context, args map[string]interface{}) Result {
		values, err := mapArg(args, "values")
		if err != nil {
			return fail(err)
		}
		return layer.CreateRecord(ctx, stringArg(args, "kind"), values)
	})
	r.register(updateRecordDef, func(ctx context.Context, args map[string]interface{}) Result {
		values, err := mapArg(args, "values")
		if err != nil {
			return fail(err)
		}
		return layer.UpdateRecord(ctx, stringArg(args, "kind"), stringArg(args, "id"), values)
	})
	r.register(deleteRecordDef, func(ctx context.Context, args map[string]interface{}) Result {
		return layer.DeleteRecord(ctx, stringArg(args, "kind"), stringArg(args, "id"))
	})
	return r
}

// ReadOnly returns only list and get.
func ReadOnly(layer *Layer, metrics ports.PipelineMetrics) *Registry {
	r := newRegistry(metrics)
	registerReads(r, layer)
	return r
}

func registerReads(r *Registry, layer *Layer) {
	r.register(listRecordsDef, func(ctx context.Context, args map[string]interface{}) Result {
		filters, err := mapArg(args, "filters")
		if err != nil {
			return fail(err)
		}
		return layer.ListRecords(ctx, stringArg(args, "kind"), filters)
	})
	r.register(getRecordDef, func(ctx context.Context, args map[string]interface{}) Result {
		return layer.GetRecord(ctx, stringArg(args, "kind"), stringArg(args, "id"))
	})
}

func (r *Registry) Definitions() []ports.ToolDefinition {
	defs := make([]ports.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].def)
	}
	return defs
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Call decodes JSON arguments and runs the named tool. Unknown tools and bad
// arguments are reported in the returned text.
func (r *Registry) Call(ctx context.Context, name string, arguments string) string {
	res := r.call(ctx, name, arguments)
	outcome := "ok"
	if res.Failed() {
		outcome = "error"
	}
	if r.metrics != nil {
		r.metrics.ToolCalled(name, outcome)
	}
	return res.String()
}

func (r *Registry) call(ctx context.Context, name string, arguments string) Result {
	e, found := r.tools[name]
	if !found {
		return failf(fmt.Sprintf("unknown tool %q; available tools: %s", name, strings.Join(r.order, ", ")))
	}
	args := map[string]interface{}{}
	if trimmed := strings.TrimSpace(arguments); trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
			return failf("arguments must be a JSON object: " + err.Error())
		}
	}
	return e.handler(ctx, args)
}

func stringArg(args map[string]interface{}, key string) string {
	v, found := args[key]
	if !found || v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func mapArg(args map[string]interface{}, key string) (map[string]interface{}, error) {
	v, found := args[key]
	if !found || v == nil {
		return nil, nil
	}
	m, isMap := v.(map[string]interface{})
	if !isMap {
		return nil, fmt.Errorf("%s must be an object", key)
	}
	return m, nil
}

var kindParam = map[string]interface{}{
	"type":        "string",
	"description": "Record kind in app.model form, e.g. services.service",
}

var idParam = map[string]interface{}{
	"type":        "string",
	"description": "Record identifier",
}

var (
	listKindsDef = ports.ToolDefinition{
		Name:        ToolListKinds,
		Description: "List every record kind that can be managed.",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	}
	describeKindDef = ports.ToolDefinition{
		Name:        ToolDescribeKind,
		Description: "Describe the settable fields of a kind: name, type, required, and referenced kind.",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"kind": kindParam},
			"required":   []string{"kind"},
		},
	}
	listRecordsDef = ports.ToolDefinition{
		Name:        ToolListRecords,
		Description: fmt.Sprintf("List up to %d records of a kind, optionally filtered by exact field values.", MaxListResults),
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"kind": kindParam,
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Field name to required value",
				},
			},
			"required": []string{"kind"},
		},
	}
	getRecordDef = ports.ToolDefinition{
		Name:        ToolGetRecord,
		Description: "Fetch one record by kind and id.",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"kind": kindParam, "id": idParam},
			"required":   []string{"kind", "id"},
		},
	}
	createRecordDef = ports.ToolDefinition{
		Name:        ToolCreateRecord,
		Description: "Create a record of a kind from field values.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"kind":   kindParam,
				"values": map[string]interface{}{"type": "object", "description": "Field name to value"},
			},
			"required": []string{"kind", "values"},
		},
	}
	updateRecordDef = ports.ToolDefinition{
		Name:        ToolUpdateRecord,
		Description: "Update some fields of a record identified by kind and id.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"kind":   kindParam,
				"id":     idParam,
				"values": map[string]interface{}{"type": "object", "description": "Field name to new value"},
			},
			"required": []string{"kind", "id", "values"},
		},
	}
	deleteRecordDef = ports.ToolDefinition{
		Name:        ToolDeleteRecord,
		Description: "Delete a record identified by kind and id.",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"kind": kindParam, "id": idParam},
			"required":   []string{"kind", "id"},
		},
	}
)
