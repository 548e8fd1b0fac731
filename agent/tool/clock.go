package tool

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
)

const (
	ToolCurrentTime = "get_current_time"
	ToolFutureTime  = "get_future_time"
	ToolLastTime    = "get_last_time"
)

// ReferenceLocation loads the zone event times are resolved in, falling back
// to a fixed offset when the zone database is unavailable.
func ReferenceLocation(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*3600+1800)
}

type TimeOutput struct {
	Time     string `json:"time"`
	Weekday  string `json:"weekday"`
	Timezone string `json:"timezone"`
	Unix     int64  `json:"unix"`
}

func timeOutput(t time.Time) TimeOutput {
	return TimeOutput{
		Time:     t.Format(time.RFC3339),
		Weekday:  t.Weekday().String(),
		Timezone: t.Location().String(),
		Unix:     t.Unix(),
	}
}

var offsetUnits = []struct {
	key  string
	unit time.Duration
}{
	{"seconds", time.Second},
	{"minutes", time.Minute},
	{"hours", time.Hour},
	{"days", 24 * time.Hour},
	{"weeks", 7 * 24 * time.Hour},
}

func offsetParams() map[string]*schema.ParameterInfo {
	params := make(map[string]*schema.ParameterInfo, len(offsetUnits))
	for _, u := range offsetUnits {
		params[u.key] = &schema.ParameterInfo{Type: schema.Integer, Desc: "Number of " + u.key + ", default 0"}
	}
	return params
}

func offsetFrom(args map[string]any) (time.Duration, error) {
	var total time.Duration
	for _, u := range offsetUnits {
		n, err := intArg(args, u.key)
		if err != nil {
			return 0, err
		}
		total += time.Duration(n) * u.unit
	}
	return total, nil
}

// RegisterClockTools adds the current/future/past time tools, all reported in loc.
func RegisterClockTools(c *Catalog, loc *time.Location, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}

	current := &schema.ToolInfo{
		Name:        ToolCurrentTime,
		Desc:        "Returns the current date and time in the reference time zone.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	}
	if err := c.Register(current, func(_ context.Context, tool string, _ map[string]any) (contractx.ToolResult, error) {
		return contractx.ToolResult{Tool: tool, Result: timeOutput(now().In(loc))}, nil
	}); err != nil {
		return err
	}

	shifted := func(sign time.Duration) Executor {
		return func(_ context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
			d, err := offsetFrom(args)
			if err != nil {
				return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
			}
			return contractx.ToolResult{Tool: tool, Result: timeOutput(now().Add(sign * d).In(loc))}, nil
		}
	}

	future := &schema.ToolInfo{
		Name:        ToolFutureTime,
		Desc:        "Returns the date and time the given amount of time after now.",
		ParamsOneOf: schema.NewParamsOneOfByParams(offsetParams()),
	}
	if err := c.Register(future, shifted(1)); err != nil {
		return err
	}

	past := &schema.ToolInfo{
		Name:        ToolLastTime,
		Desc:        "Returns the date and time the given amount of time before now.",
		ParamsOneOf: schema.NewParamsOneOfByParams(offsetParams()),
	}
	return c.Register(past, shifted(-1))
}
