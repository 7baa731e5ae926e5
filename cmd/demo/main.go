// Command demo loads a YAML graph definition and runs it once against a
// starting user message, the way pchaganti-gx-mcp-host's cmd/root.go wires
// a cobra CLI around a config file and kadirpekel-hector's own demo/run
// commands drive one agent execution end to end.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/draftnrun/agentgraph/component"
	"github.com/draftnrun/agentgraph/components/identity"
	"github.com/draftnrun/agentgraph/components/ifelse"
	"github.com/draftnrun/agentgraph/components/router"
	"github.com/draftnrun/agentgraph/components/subgraph"
	"github.com/draftnrun/agentgraph/graph"
	"github.com/draftnrun/agentgraph/graphdef"
	"github.com/draftnrun/agentgraph/llmservice"
	"github.com/draftnrun/agentgraph/llmservice/anthropic"
	"github.com/draftnrun/agentgraph/llmservice/openai"
	"github.com/draftnrun/agentgraph/nodedata"
	"github.com/draftnrun/agentgraph/react"
	"gopkg.in/yaml.v3"
)

var (
	graphFile  string
	inputText  string
	modelFlag  string
	apiKeyFlag string
)

var rootCmd = &cobra.Command{
	Use:   "demo",
	Short: "Load a graph definition and run it once",
	Long: `demo loads a YAML graph definition (nodes, edges, port mappings)
and executes it against a single starting user message, printing the
terminal node's output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&graphFile, "graph", "g", "", "path to the graph YAML definition (required)")
	rootCmd.Flags().StringVarP(&inputText, "input", "i", "Hello", "the user message to start the run with")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "openai:gpt-4o-mini", "model to use (format: provider:model)")
	rootCmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "API key for the selected provider (defaults to its *_API_KEY env var)")
	_ = rootCmd.MarkFlagRequired("graph")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	raw, err := os.ReadFile(graphFile)
	if err != nil {
		return fmt.Errorf("demo: read graph file: %w", err)
	}

	completion, err := buildCompletionService()
	if err != nil {
		return err
	}

	reg := buildRegistry(completion)
	def, err := graphdef.Load(raw, reg)
	if err != nil {
		return err
	}

	runner, err := graph.Build(def)
	if err != nil {
		return fmt.Errorf("demo: build graph: %w", err)
	}

	input := nodedata.NodeData{
		Data: map[string]any{
			"messages": []nodedata.ChatMessage{{Role: nodedata.RoleUser, Content: inputText}},
		},
		Ctx: map[string]any{},
	}

	result, err := runner.Run(ctx, input)
	if err != nil {
		return fmt.Errorf("demo: run graph: %w", err)
	}

	out, err := json.MarshalIndent(result.Terminal.Data, "", "  ")
	if err != nil {
		return fmt.Errorf("demo: marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// buildRegistry wires every component type a demo graph file can name to
// its constructor. Node "type" strings are the registry keys.
func buildRegistry(completion llmservice.CompletionService) graphdef.Registry {
	return graphdef.Registry{
		"identity": func(attrs nodedata.ComponentAttributes, cfg yaml.Node) (component.Component, error) {
			var c struct {
				Prefix string `yaml:"prefix"`
			}
			if err := cfg.Decode(&c); err != nil {
				return nil, err
			}
			return identity.New(identity.Config{Prefix: c.Prefix, Attributes: attrs}), nil
		},
		"router": func(attrs nodedata.ComponentAttributes, _ yaml.Node) (component.Component, error) {
			return router.New(router.Config{Attributes: attrs}), nil
		},
		"ifelse": func(attrs nodedata.ComponentAttributes, _ yaml.Node) (component.Component, error) {
			return ifelse.New(ifelse.Config{Attributes: attrs}), nil
		},
		"react": func(attrs nodedata.ComponentAttributes, cfg yaml.Node) (component.Component, error) {
			var c struct {
				MaxIterations      int  `yaml:"max_iterations"`
				RunToolsInParallel bool `yaml:"run_tools_in_parallel"`
				AllowToolShortcuts bool `yaml:"allow_tool_shortcuts"`
			}
			if err := cfg.Decode(&c); err != nil {
				return nil, err
			}
			return react.New(react.Config{
				Completion:           completion,
				Attributes:           attrs,
				MaxIterations:        c.MaxIterations,
				RunToolsInParallel:   c.RunToolsInParallel,
				AllowToolShortcuts:   c.AllowToolShortcuts,
			})
		},
		"subgraph": func(attrs nodedata.ComponentAttributes, cfg yaml.Node) (component.Component, error) {
			var c struct {
				GraphFile string `yaml:"graph_file"`
			}
			if err := cfg.Decode(&c); err != nil {
				return nil, err
			}
			inner, err := os.ReadFile(c.GraphFile)
			if err != nil {
				return nil, fmt.Errorf("subgraph: read graph file: %w", err)
			}
			innerDef, err := graphdef.Load(inner, buildRegistry(completion))
			if err != nil {
				return nil, err
			}
			innerRunner, err := graph.Build(innerDef)
			if err != nil {
				return nil, fmt.Errorf("subgraph: build inner graph: %w", err)
			}
			return subgraph.New(subgraph.Config{Runner: innerRunner, Attributes: attrs}), nil
		},
	}
}

func buildCompletionService() (llmservice.CompletionService, error) {
	provider, model := splitModelFlag(modelFlag)
	switch provider {
	case "anthropic":
		apiKey := apiKeyFlag
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		return anthropic.NewFromAPIKey(apiKey, model, 4096, 0)
	case "openai":
		apiKey := apiKeyFlag
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return openai.NewFromAPIKey(apiKey, model, 0)
	default:
		return nil, fmt.Errorf("demo: unknown model provider %q (expected anthropic:... or openai:...)", provider)
	}
}

func splitModelFlag(flag string) (provider, model string) {
	for i := 0; i < len(flag); i++ {
		if flag[i] == ':' {
			return flag[:i], flag[i+1:]
		}
	}
	return flag, ""
}
