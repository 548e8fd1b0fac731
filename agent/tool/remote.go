package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/mark3labs/mcp-go/mcp"
	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
	mcphostx "github.com/tanpawarit/chative-crm-assistant/pkg/mcphost"
)

// RemoteCaller invokes a tool on an external server.
type RemoteCaller interface {
	Call(ctx context.Context, server, tool string, args map[string]any) (string, error)
}

// RegisterRemoteTools exposes discovered server tools through the catalog.
// Remote failures the model can react to are returned in-band; timeouts and
// transport failures fail the calling agent.
func RegisterRemoteTools(c *Catalog, caller RemoteCaller, tools []mcphostx.RemoteTool) error {
	for _, rt := range tools {
		rt := rt
		info := &schema.ToolInfo{
			Name:        rt.Name,
			Desc:        rt.Description,
			ParamsOneOf: paramsFromSchema(rt.InputSchema),
		}
		exec := func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
			out, err := caller.Call(ctx, rt.Server, rt.Remote, args)
			switch {
			case err == nil:
				return contractx.ToolResult{Tool: tool, Result: out}, nil
			case errors.Is(err, mcphostx.ErrRemoteTool):
				msg := out
				if msg == "" {
					msg = err.Error()
				}
				return contractx.ToolResult{Tool: tool, Error: msg}, nil
			case errors.Is(err, mcphostx.ErrTimeout):
				return contractx.ToolResult{}, fmt.Errorf("%w: %v", contractx.ErrToolTimeout, err)
			default:
				return contractx.ToolResult{}, fmt.Errorf("%w: %v", contractx.ErrBackendUnavailable, err)
			}
		}
		if err := c.Register(info, exec); err != nil {
			return err
		}
	}
	return nil
}

func paramsFromSchema(in mcp.ToolInputSchema) *schema.ParamsOneOf {
	return schema.NewParamsOneOfByParams(paramsFromProperties(in.Properties, in.Required))
}

func paramsFromProperties(props map[string]any, required []string) map[string]*schema.ParameterInfo {
	req := make(map[string]bool, len(required))
	for _, name := range required {
		req[name] = true
	}

	out := make(map[string]*schema.ParameterInfo, len(props))
	for name, raw := range props {
		p := parameterFromJSON(raw)
		p.Required = req[name]
		out[name] = p
	}
	return out
}

func parameterFromJSON(raw any) *schema.ParameterInfo {
	m, _ := raw.(map[string]any)
	p := &schema.ParameterInfo{Type: dataType(m["type"])}

	if desc, ok := m["description"].(string); ok {
		p.Desc = desc
	}
	if enum, ok := m["enum"].([]any); ok {
		for _, v := range enum {
			p.Enum = append(p.Enum, fmt.Sprint(v))
		}
	}

	switch p.Type {
	case schema.Array:
		p.ElemInfo = parameterFromJSON(m["items"])
	case schema.Object:
		props, _ := m["properties"].(map[string]any)
		if len(props) > 0 {
			p.SubParams = paramsFromProperties(props, stringList(m["required"]))
		}
	}
	return p
}

// dataType maps a JSON schema type, which may be a list such as
// ["string","null"], onto eino's parameter types.
func dataType(raw any) schema.DataType {
	var candidates []string
	switch v := raw.(type) {
	case string:
		candidates = []string{v}
	case []any:
		candidates = stringList(v)
	case []string:
		candidates = v
	}

	for _, c := range candidates {
		switch c {
		case "object":
			return schema.Object
		case "array":
			return schema.Array
		case "integer":
			return schema.Integer
		case "number":
			return schema.Number
		case "boolean":
			return schema.Boolean
		case "string":
			return schema.String
		}
	}
	return schema.String
}

func stringList(raw any) []string {
	var out []string
	switch v := raw.(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
