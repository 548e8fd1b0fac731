package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/chative-crm-assistant/agent/nodes"
)

type stateStep struct {
	name string
	run  func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error)
}

// compileHandleGraph wires validate_batch -> dispatch_agents -> apply_results
// -> append_transcript -> finalize_result.
func (o *Orchestrator) compileHandleGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	const first, last = "validate_batch", "finalize_result"

	if err := graph.AddLambdaNode(first,
		compose.InvokableLambda(func(_ context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateBatch(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", first, err)
	}

	steps := []stateStep{
		{name: "dispatch_agents", run: func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchStep(ctx, in, o.agents, o.agentTimeout)
		}},
		{name: "apply_results", run: func(_ context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ApplyStep(in)
		}},
		{name: "append_transcript", run: func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.AppendTranscript(ctx, in, o.transcript)
		}},
	}

	prev := first
	edges := [][2]string{{compose.START, first}}
	for _, step := range steps {
		if err := graph.AddLambdaNode(step.name, compose.InvokableLambda(step.run)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", step.name, err)
		}
		edges = append(edges, [2]string{prev, step.name})
		prev = step.name
	}

	if err := graph.AddLambdaNode(last,
		compose.InvokableLambda(func(_ context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeResult(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", last, err)
	}
	edges = append(edges, [2]string{prev, last}, [2]string{last, compose.END})

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_batch"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
