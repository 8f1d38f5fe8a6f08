// Package config loads declarative pipeline definitions: source schemas
// and routing rules. Definitions come from YAML or JSON files and are
// applied to a running ingestor/orchestrator pair at startup.
package config
