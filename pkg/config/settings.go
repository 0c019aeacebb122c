// Package config loads process settings from the environment and agent
// graph specifications from a directory of YAML documents.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Defaults.
const (
	DefaultLogLevel      = "INFO"
	DefaultModelName     = "gpt-4o-mini"
	DefaultAgentConfigs  = "agents"
	DefaultPrimaryConfig = "primary"
	DefaultPort          = 8000
	DefaultMQTTTopic     = "agentgraph/threads"
)

// Settings holds the process-wide environment configuration.
type Settings struct {
	LogLevel string

	LiteLLMGatewayURL    string
	LiteLLMGatewayAPIKey string
	TFYGatewayURL        string
	TFYGatewayAPIKey     string
	ModelName            string

	RedisURL string

	AgentConfigs  string
	PrimaryConfig string
	Port          int

	MQTTURL   string
	MQTTTopic string
}

// Getenv looks up an environment variable.
type Getenv func(string) string

// Load reads Settings using getenv, or os.Getenv when nil. Secrets may be
// given as NAME_FILE pointing at a file whose trimmed content is the value.
func Load(getenv Getenv) (Settings, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	lookup := func(key, def string) (string, error) {
		if path := getenv(key + "_FILE"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("read %s_FILE: %w", key, err)
			}
			return strings.TrimSpace(string(data)), nil
		}
		if v := getenv(key); v != "" {
			return v, nil
		}
		return def, nil
	}

	var s Settings
	var errs []error
	set := func(dst *string, key, def string) {
		v, err := lookup(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		*dst = v
	}

	set(&s.LogLevel, "LOG_LEVEL", DefaultLogLevel)
	set(&s.LiteLLMGatewayURL, "LITELLM_GATEWAY_URL", "")
	set(&s.LiteLLMGatewayAPIKey, "LITELLM_GATEWAY_API_KEY", "")
	set(&s.TFYGatewayURL, "TFY_GATEWAY_URL", "")
	set(&s.TFYGatewayAPIKey, "TFY_GATEWAY_API_KEY", "")
	set(&s.ModelName, "MODEL_NAME", DefaultModelName)
	set(&s.RedisURL, "REDIS_URL", "")
	set(&s.AgentConfigs, "AGENT_CONFIGS", DefaultAgentConfigs)
	set(&s.PrimaryConfig, "PRIMARY_CONFIG", DefaultPrimaryConfig)
	set(&s.MQTTURL, "MQTT_URL", "")
	set(&s.MQTTTopic, "MQTT_TOPIC", DefaultMQTTTopic)

	var port string
	set(&port, "PORT", strconv.Itoa(DefaultPort))
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %q", port))
	}
	s.Port = p

	return s, errors.Join(errs...)
}

// Gateway returns the model gateway to use, preferring LiteLLM over TrueFoundry.
func (s Settings) Gateway() (url, apiKey string) {
	if s.LiteLLMGatewayURL != "" {
		return s.LiteLLMGatewayURL, s.LiteLLMGatewayAPIKey
	}
	return s.TFYGatewayURL, s.TFYGatewayAPIKey
}

// ValidateModel checks that a gateway and its API key are configured.
func (s Settings) ValidateModel() error {
	var errs []error
	if s.LiteLLMGatewayURL == "" && s.TFYGatewayURL == "" {
		errs = append(errs, errors.New("either LITELLM_GATEWAY_URL or TFY_GATEWAY_URL must be set"))
	}
	if s.LiteLLMGatewayURL != "" && s.LiteLLMGatewayAPIKey == "" {
		errs = append(errs, errors.New("LITELLM_GATEWAY_API_KEY must be set if LITELLM_GATEWAY_URL is provided"))
	}
	if s.TFYGatewayURL != "" && s.TFYGatewayAPIKey == "" {
		errs = append(errs, errors.New("TFY_GATEWAY_API_KEY must be set if TFY_GATEWAY_URL is provided"))
	}
	return errors.Join(errs...)
}

// ValidateAgentConfigs checks that the configs directory holds the primary document.
func (s Settings) ValidateAgentConfigs() error {
	info, err := os.Stat(s.AgentConfigs)
	if err != nil {
		return fmt.Errorf("agent config path %s does not exist", s.AgentConfigs)
	}
	if !info.IsDir() {
		return fmt.Errorf("agent config path %s is not a directory", s.AgentConfigs)
	}
	primary := filepath.Join(s.AgentConfigs, s.PrimaryConfig+".yaml")
	if _, err := os.Stat(primary); err != nil {
		return fmt.Errorf("agent config path %s does not contain a %s.yaml file", s.AgentConfigs, s.PrimaryConfig)
	}
	return nil
}
