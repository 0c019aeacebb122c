// Package cli wires settings, agent configurations and adapters into the
// agentgraph commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/agentgraph"
	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/internal/metrics"
	"github.com/aretw0/agentgraph/pkg/adapters/mqtt"
	"github.com/aretw0/agentgraph/pkg/adapters/openai"
	"github.com/aretw0/agentgraph/pkg/config"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
	"github.com/aretw0/agentgraph/pkg/registry"
)

// ErrModelNotConfigured is returned by the placeholder model of offline commands.
var ErrModelNotConfigured = errors.New("chat model is not configured")

// Options selects what Bootstrap wires.
type Options struct {
	Settings config.Settings
	Logger   *slog.Logger

	// Online commands need a model gateway and may publish to MQTT.
	Online bool
	// SkipMCP replaces remote tool servers with empty tool sets.
	SkipMCP bool
	// Model overrides the gateway client.
	Model ports.ChatModel
}

// App is a bootstrapped agentgraph process.
type App struct {
	Settings config.Settings
	Agents   *config.Agents
	Service  *agentgraph.Service
	Metrics  *metrics.Collector
	Logger   *slog.Logger

	mqtt *mqtt.Client
}

// Bootstrap validates settings, loads agent configurations and creates the service.
func Bootstrap(opts Options) (*App, error) {
	s := opts.Settings
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := s.ValidateAgentConfigs(); err != nil {
		return nil, err
	}
	agents, err := config.LoadAgentConfigs(s.AgentConfigs, s.PrimaryConfig)
	if err != nil {
		return nil, err
	}

	model := opts.Model
	if model == nil {
		model, err = newModel(s, opts.Online, logger)
		if err != nil {
			return nil, err
		}
	}

	app := &App{
		Settings: s,
		Agents:   agents,
		Metrics:  metrics.New(),
		Logger:   logger,
	}

	svcOpts := []agentgraph.Option{
		agentgraph.WithLogger(logger),
		agentgraph.WithRedisURL(s.RedisURL),
		agentgraph.WithDistributedLock(0),
		agentgraph.WithLifecycleHooks(app.Metrics.Hooks()),
		agentgraph.WithLifecycleHooks(debugHooks(logger)),
	}
	if opts.SkipMCP {
		svcOpts = append(svcOpts, agentgraph.WithToolSource(func(ctx context.Context, addr string) ([]registry.Tool, io.Closer, error) {
			logger.Info("Skipping MCP server", "addr", addr)
			return nil, nil, nil
		}))
	}
	if opts.Online && s.MQTTURL != "" {
		if hooks, ok := app.connectMQTT(); ok {
			svcOpts = append(svcOpts, agentgraph.WithLifecycleHooks(hooks))
		}
	}

	app.Service, err = agentgraph.New(agents, model, svcOpts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Close releases the service and broker connection.
func (a *App) Close() error {
	var err error
	if a.Service != nil {
		err = a.Service.Close()
	}
	if a.mqtt != nil {
		a.mqtt.Disconnect()
	}
	return err
}

func newModel(s config.Settings, online bool, logger *slog.Logger) (ports.ChatModel, error) {
	if !online {
		return ports.ChatModelFunc(func(ctx context.Context, _ []domain.Message, _ []domain.ToolDefinition) (domain.Message, error) {
			return domain.Message{}, ErrModelNotConfigured
		}), nil
	}
	if err := s.ValidateModel(); err != nil {
		return nil, err
	}
	url, key := s.Gateway()
	logger.Info("Model configured", "model", s.ModelName, "gateway", url)
	return openai.New(url, key, s.ModelName, openai.WithLogger(logger)), nil
}

// connectMQTT keeps serving when the broker is down; events are then not published.
func (a *App) connectMQTT() (domain.LifecycleHooks, bool) {
	host, _ := os.Hostname()
	client := mqtt.NewClient(a.Settings.MQTTURL, fmt.Sprintf("agentgraph-%s-%d", host, os.Getpid()))
	if err := client.Connect(); err != nil {
		a.Logger.Warn("mqtt: failed to connect", "broker", a.Settings.MQTTURL, "err", err)
		return domain.LifecycleHooks{}, false
	}
	a.mqtt = client
	a.Logger.Info("mqtt: publishing thread events", "broker", a.Settings.MQTTURL, "topic", a.Settings.MQTTTopic)
	return mqtt.NewEventPublisher(client, a.Settings.MQTTTopic, mqtt.WithLogger(a.Logger)).Hooks(), true
}

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Enter Node", "graph", e.Graph, "thread_id", e.ThreadID, "node", e.NodeID, "step", e.Step)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Leave Node", "graph", e.Graph, "thread_id", e.ThreadID, "node", e.NodeID, "duration", e.Duration)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.Debug("Tool Call", "tool_name", e.ToolName, "call_id", e.CallID)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			if e.IsError {
				logger.Debug("Tool Return (Error)", "tool_name", e.ToolName, "err", e.Output)
			} else {
				logger.Debug("Tool Return (Success)", "tool_name", e.ToolName)
			}
		},
	}
}
