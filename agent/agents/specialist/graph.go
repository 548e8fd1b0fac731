package specialist

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/chative-crm-assistant/agent/contract"
)

const (
	nodePrepare   = "prepare_messages"
	nodeReact     = "react"
	nodeNormalize = "normalize"
)

// compileAgentGraph wires prompt assembly, the tool loop and output
// normalisation into one runnable.
func compileAgentGraph(
	ctx context.Context,
	name string,
	prepare func(context.Context, contractx.AgentRequest) ([]*schema.Message, error),
	loop *react.Agent,
	normalize func(context.Context, *schema.Message) (contractx.AgentResponse, error),
) (compose.Runnable[contractx.AgentRequest, contractx.AgentResponse], error) {
	graph := compose.NewGraph[contractx.AgentRequest, contractx.AgentResponse]()

	if err := graph.AddLambdaNode(nodePrepare, compose.InvokableLambda(prepare)); err != nil {
		return nil, fmt.Errorf("add %s prepare node: %w", name, err)
	}
	if err := graph.AddLambdaNode(nodeReact,
		compose.InvokableLambda(func(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
			return loop.Generate(ctx, msgs)
		}),
	); err != nil {
		return nil, fmt.Errorf("add %s react node: %w", name, err)
	}
	if err := graph.AddLambdaNode(nodeNormalize, compose.InvokableLambda(normalize)); err != nil {
		return nil, fmt.Errorf("add %s normalize node: %w", name, err)
	}

	edges := [][2]string{
		{compose.START, nodePrepare},
		{nodePrepare, nodeReact},
		{nodeReact, nodeNormalize},
		{nodeNormalize, compose.END},
	}
	for _, e := range edges {
		if err := graph.AddEdge(e[0], e[1]); err != nil {
			return nil, fmt.Errorf("add %s edge %s->%s: %w", name, e[0], e[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(name))
	if err != nil {
		return nil, fmt.Errorf("compile %s graph: %w", name, err)
	}
	return runner, nil
}
