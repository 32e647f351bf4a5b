// Command agenthub is a text console over a realtime conversation session
// with tool calling and long-running deep-research jobs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/chzyer/readline"

	orchestration "github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core"
	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/events"
	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/realtime"
	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/research"
	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/tools"
)

type config struct {
	RealtimeURL string `env:"REALTIME_URL,required"`
	APIKey      string `env:"REALTIME_API_KEY,required"`
	Voice       string `env:"REALTIME_VOICE" envDefault:"alloy"`

	Instructions string        `env:"AGENT_INSTRUCTIONS" envDefault:"You are a concise, helpful assistant."`
	ToolTimeout  time.Duration `env:"TOOL_TIMEOUT" envDefault:"30s"`

	ResearchURL    string        `env:"RESEARCH_URL"`
	ResearchAPIKey string        `env:"RESEARCH_API_KEY"`
	PollInterval   time.Duration `env:"RESEARCH_POLL_INTERVAL" envDefault:"1.5s"`
	MaxPollTime    time.Duration `env:"RESEARCH_MAX_POLL_DURATION" envDefault:"30m"`
}

type weatherArgs struct {
	Location string `json:"location" jsonschema:"description=City or region to report on"`
	Date     string `json:"date,omitempty" jsonschema:"description=ISO date to report on"`
}

type databaseArgs struct {
	Query string `json:"query" jsonschema:"description=Free-text search over the sample records"`
}

func demoRegistry() (*tools.Registry, error) {
	weather := tools.New("get_weather", "Returns the weather forecast for a location.",
		func(ctx context.Context, args weatherArgs) (string, error) {
			forecast := map[string]any{
				"location":    args.Location,
				"condition":   "sunny",
				"temperature": 23,
			}
			encoded, err := json.Marshal(forecast)
			if err != nil {
				return "", err
			}
			return string(encoded), nil
		})

	// Deliberately slow, to exercise tool execution overlapping with the
	// conversation. Honors cancellation.
	search := tools.New("search_database", "Searches the sample record store. Slow.",
		func(ctx context.Context, args databaseArgs) (string, error) {
			select {
			case <-time.After(20 * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			return fmt.Sprintf(`{"matches":[{"record":"sample","query":%q}]}`, args.Query), nil
		})

	return tools.NewRegistry(weather, search)
}

func main() {
	if err := run(); err != nil {
		printError("agenthub: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := demoRegistry()
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}
	definitions, err := registry.Definitions()
	if err != nil {
		return fmt.Errorf("failed to reflect tool schemas: %w", err)
	}

	ui := &console{}

	sessionCfg := realtime.NewConfig(
		realtime.WithModalities(realtime.ModalityText),
		realtime.WithInstructions(cfg.Instructions),
		realtime.WithVoice(cfg.Voice),
		realtime.WithTools(definitions...),
	)

	session, err := realtime.Connect(ctx, cfg.RealtimeURL, sessionCfg,
		realtime.WithAPIKey(cfg.APIKey))
	if err != nil {
		return fmt.Errorf("failed to open realtime session: %w", err)
	}

	orchestrator := orchestration.New(session, registry,
		orchestration.WithSink(ui),
		orchestration.WithToolTimeout(cfg.ToolTimeout),
		orchestration.WithEventListener(logLifecycle(ui)),
	)
	defer orchestrator.Close()

	var supervisor *research.Supervisor
	if cfg.ResearchURL != "" {
		client := research.NewClient(cfg.ResearchURL,
			research.WithClientAPIKey(cfg.ResearchAPIKey))
		supervisor = research.NewSupervisor(client,
			research.WithSink(ui.research()),
			research.WithEventListener(logLifecycle(ui)),
			research.WithPollInterval(cfg.PollInterval),
			research.WithMaxPollDuration(cfg.MaxPollTime),
		)
		defer supervisor.Close()
	}

	runErr := make(chan error, 1)
	go func() { runErr <- orchestrator.Run(ctx) }()

	fmt.Println(helpText())
	if err := inputLoop(ctx, orchestrator, supervisor, runErr); err != nil {
		return err
	}

	select {
	case err := <-runErr:
		return err
	default:
		return nil
	}
}

func inputLoop(ctx context.Context, orchestrator *orchestration.Orchestrator, supervisor *research.Supervisor, runErr <-chan error) error {
	rl, err := readline.New("> ")
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer rl.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-runErr:
			return err
		default:
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("input failed: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			return nil

		case line == "/help":
			fmt.Println(helpText())

		case line == "/state":
			fmt.Println(statusStyle.Render(string(orchestrator.TurnState())))

		case strings.HasPrefix(line, "/research "):
			if supervisor == nil {
				printError("research is not configured; set RESEARCH_URL")
				continue
			}
			query := strings.TrimSpace(strings.TrimPrefix(line, "/research "))
			id, err := supervisor.Submit(ctx, research.Request{Query: query})
			if err != nil {
				printError("research submit failed: %v", err)
				continue
			}
			fmt.Println(statusStyle.Render("research job " + id))

		case strings.HasPrefix(line, "/cancel "):
			if supervisor == nil {
				printError("research is not configured; set RESEARCH_URL")
				continue
			}
			id := strings.TrimSpace(strings.TrimPrefix(line, "/cancel "))
			if err := supervisor.Cancel(ctx, id); err != nil {
				printError("cancel failed: %v", err)
			}

		case strings.HasPrefix(line, "/"):
			printError("unknown command %s", line)

		default:
			sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := orchestrator.SendText(sendCtx, line)
			cancel()
			if err != nil {
				printError("send failed: %v", err)
				if errors.Is(err, realtime.ErrSessionClosed) {
					return nil
				}
			}
		}
	}
}

// logLifecycle renders orchestration and research lifecycle events as status
// lines. It runs inline on event paths and only formats and prints.
func logLifecycle(ui *console) func(events.Event) {
	return func(event events.Event) {
		switch e := event.(type) {
		case events.ToolCallStarted:
			ui.SetStatus(fmt.Sprintf("tool %s started (%s)", e.Name, e.CallID))
		case events.ToolCallCompleted:
			ui.SetStatus(fmt.Sprintf("tool %s completed (%s)", e.Name, e.CallID))
		case events.ToolCallFailed:
			ui.SetStatus(fmt.Sprintf("tool %s failed: %s", e.Name, e.Error))
		case events.BargeIn:
			ui.SetStatus("barge-in")
		}
	}
}
