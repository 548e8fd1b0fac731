package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
)

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// Catalog is the tool registry shared by both agents. It is filled once at
// startup and only read afterwards.
type Catalog struct {
	mu    sync.RWMutex
	infos []*schema.ToolInfo
	execs map[string]Executor
}

func NewCatalog() *Catalog {
	return &Catalog{execs: make(map[string]Executor)}
}

func (c *Catalog) Register(info *schema.ToolInfo, exec Executor) error {
	if info == nil || strings.TrimSpace(info.Name) == "" {
		return fmt.Errorf("%w: tool name is required", contractx.ErrValidation)
	}
	if exec == nil {
		return fmt.Errorf("%w: tool %s has no executor", contractx.ErrValidation, info.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.execs[info.Name]; exists {
		return fmt.Errorf("%w: tool %s registered twice", contractx.ErrValidation, info.Name)
	}
	c.infos = append(c.infos, info)
	c.execs[info.Name] = exec
	return nil
}

func (c *Catalog) Infos() []*schema.ToolInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*schema.ToolInfo, len(c.infos))
	copy(out, c.infos)
	return out
}

func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.infos))
	for _, info := range c.infos {
		out = append(out, info.Name)
	}
	sort.Strings(out)
	return out
}

// Execute runs a tool by name. Unknown tools are reported in-band.
func (c *Catalog) Execute(ctx context.Context, name string, args map[string]any) (contractx.ToolResult, error) {
	c.mu.RLock()
	exec, ok := c.execs[name]
	c.mu.RUnlock()
	if !ok {
		return contractx.ToolResult{
			Tool:  name,
			Error: fmt.Sprintf("tool=%s is unavailable", name),
		}, nil
	}
	return exec(ctx, name, args)
}

// BaseTools adapts every registered tool to eino's invokable tool interface.
func (c *Catalog) BaseTools() []einotool.BaseTool {
	infos := c.Infos()
	out := make([]einotool.BaseTool, 0, len(infos))
	for _, info := range infos {
		out = append(out, &catalogTool{info: info, catalog: c})
	}
	return out
}

type catalogTool struct {
	info    *schema.ToolInfo
	catalog *Catalog
}

var _ einotool.InvokableTool = (*catalogTool)(nil)

func (t *catalogTool) Info(context.Context) (*schema.ToolInfo, error) {
	return t.info, nil
}

func (t *catalogTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...einotool.Option) (string, error) {
	args := map[string]any{}
	if raw := strings.TrimSpace(argumentsInJSON); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return Render(contractx.ToolResult{
				Tool:  t.info.Name,
				Error: fmt.Sprintf("arguments must be a JSON object: %v", err),
			}), nil
		}
	}

	res, err := t.catalog.Execute(ctx, t.info.Name, args)
	if err != nil {
		return "", err
	}
	return Render(res), nil
}

// Render turns a result into the text the model reads.
func Render(res contractx.ToolResult) string {
	if res.Error != "" {
		return "error: " + res.Error
	}
	switch v := res.Result.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	b, err := json.Marshal(res.Result)
	if err != nil {
		return fmt.Sprint(res.Result)
	}
	return string(b)
}
