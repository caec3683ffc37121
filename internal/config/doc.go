// Package config handles configuration loading for relay-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults for a local Ollama
// backend.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from RELAY_CONFIG environment variable
//  2. ./relay.yaml (current directory)
//  3. ~/.config/chat-relay/relay.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	backend:
//	  host: "${OLLAMA_HOST}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:3001"
//
// Backend:
//
//	backend:
//	  host: "http://localhost:11434"
//	  model: "cogito"
//	  timeout: "60s"
//
// Persistence:
//
//	store:
//	  path: "data/conversations.json"
//	  thought_log_path: "data/thoughts.db"
//	  agent_log_path: "data/agent.log"
//	  max_turns: 50
//
// Prompt construction:
//
//	prompt:
//	  recent_window: 10
//	  template_path: ""   # optional mode-instruction overrides
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Rate limits:
//
//	limits:
//	  chat_per_minute: 60
//	  log_per_minute: 1000
//
// # Usage
//
//	cfg, err := config.Load("/etc/chat-relay/relay.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
