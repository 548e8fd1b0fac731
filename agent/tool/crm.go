package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
	crmx "github.com/tanpawarit/chative-crm-assistant/agent/crm"
)

const (
	ToolGetCRM   = "get_crm"
	ToolWriteCRM = "write_crm"

	NoCRMData      = "No CRM data found for the user"
	CRMWrittenText = "CRM data written successfully"
)

// RegisterCRMTools adds the relationship record read/write tools backed by store.
func RegisterCRMTools(c *Catalog, store contractx.RecordStore) error {
	get := &schema.ToolInfo{
		Name: ToolGetCRM,
		Desc: "Fetches the CRM record for the contact with the given user_id.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"user_id": {Type: schema.String, Desc: "Contact identifier, the chat JID", Required: true},
		}),
	}
	if err := c.Register(get, func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		id, _ := stringArg(args, "user_id")
		if strings.TrimSpace(id) == "" {
			return contractx.ToolResult{Tool: tool, Error: "user_id is required"}, nil
		}

		content, err := store.Read(ctx, id)
		switch {
		case errors.Is(err, crmx.ErrRecordNotFound):
			return contractx.ToolResult{Tool: tool, Result: NoCRMData}, nil
		case errors.Is(err, crmx.ErrInvalidID):
			return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
		case err != nil:
			return contractx.ToolResult{}, fmt.Errorf("%w: read crm record: %v", contractx.ErrPersist, err)
		}
		return contractx.ToolResult{Tool: tool, Result: content}, nil
	}); err != nil {
		return err
	}

	write := &schema.ToolInfo{
		Name: ToolWriteCRM,
		Desc: "Writes the full CRM record for the contact with the given user_id, replacing any previous record.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"user_id":  {Type: schema.String, Desc: "Contact identifier, the chat JID", Required: true},
			"crm_data": {Type: schema.String, Desc: "Complete CRM record as a JSON document", Required: true},
		}),
	}
	return c.Register(write, func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		id, _ := stringArg(args, "user_id")
		if strings.TrimSpace(id) == "" {
			return contractx.ToolResult{Tool: tool, Error: "user_id is required"}, nil
		}
		data, ok := stringArg(args, "crm_data")
		if !ok {
			return contractx.ToolResult{Tool: tool, Error: "crm_data is required"}, nil
		}

		err := store.Write(ctx, id, data)
		switch {
		case errors.Is(err, crmx.ErrInvalidID):
			return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
		case err != nil:
			return contractx.ToolResult{}, fmt.Errorf("%w: write crm record: %v", contractx.ErrPersist, err)
		}
		return contractx.ToolResult{Tool: tool, Result: CRMWrittenText}, nil
	})
}
