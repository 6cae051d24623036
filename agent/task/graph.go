package task

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/tanpawarit/slide-copilot/agent/nodes/generate"
)

func (r *Runner) compileGenerateGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("derive_topic",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.DeriveTopic(in, r.gate)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node derive_topic: %w", err)
	}

	if err := graph.AddLambdaNode("research",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Research(ctx, in, r.researcher)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node research: %w", err)
	}

	if err := graph.AddLambdaNode("compose",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Compose(ctx, in, r.actions)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node compose: %w", err)
	}

	if err := graph.AddLambdaNode("insert",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.Insert(ctx, in, r.gate)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node insert: %w", err)
	}

	edges := [][2]string{
		{compose.START, "derive_topic"},
		{"derive_topic", "research"},
		{"research", "compose"},
		{"compose", "insert"},
		{"insert", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("task.generate_next_slide"))
	if err != nil {
		return nil, fmt.Errorf("compile generate graph: %w", err)
	}
	return runner, nil
}
