package cli

import (
	"encoding/json"
	"strings"
)

// SchemaCmd outputs JSON Schema for adjust NDJSON output types
type SchemaCmd struct {
	Type []string `short:"t" help:"Output types to include (state,package,result,error,version). Default: all"`
}

var schemaTypes = []string{"state", "package", "result", "error", "version"}

// Run executes the schema command
func (c *SchemaCmd) Run(globals *Globals) error {
	schemas := map[string]interface{}{
		"state":   stateSchema(),
		"package": packageSchema(),
		"result":  resultSchema(),
		"error":   errorSchema(),
		"version": versionSchema(),
	}

	typesToOutput := c.Type
	if len(typesToOutput) == 0 {
		typesToOutput = schemaTypes
	}

	defs := map[string]interface{}{}
	for _, t := range typesToOutput {
		t = strings.ToLower(strings.TrimSpace(t))
		if schema, ok := schemas[t]; ok {
			defs[t] = schema
		}
	}

	out := map[string]interface{}{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       "adjust Output Schemas",
		"description": "JSON Schema definitions for all adjust NDJSON output types",
		"definitions": defs,
	}

	encoder := json.NewEncoder(globals.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func record(title, description, typ string, props map[string]interface{}, required ...string) map[string]interface{} {
	props["type"] = map[string]interface{}{"type": "string", "const": typ}
	props["schemaVersion"] = prop("integer", "Output schema version")
	return map[string]interface{}{
		"type":        "object",
		"title":       title,
		"description": description,
		"properties":  props,
		"required":    append([]string{"type", "schemaVersion"}, required...),
	}
}

func stateSchema() map[string]interface{} {
	return record("Activity State", "Persisted session counters", "state", map[string]interface{}{
		"uuid":                   prop("string", "Install identifier"),
		"enabled":                prop("boolean", "Whether tracking is switched on"),
		"event_count":            prop("integer", "Events tracked over the app lifetime"),
		"session_count":          prop("integer", "Sessions started"),
		"subsession_count":       prop("integer", "Subsessions in the current session"),
		"session_length_seconds": prop("number", "Active time in the current session"),
		"time_spent_seconds":     prop("number", "Active time across all sessions"),
		"last_interval_seconds":  prop("number", "Gap before the current session"),
		"created_at":             map[string]interface{}{"type": "string", "format": "date-time"},
		"last_activity":          map[string]interface{}{"type": "string", "format": "date-time"},
		"attribution_tracker":    prop("string", "Attributed tracker name"),
		"attribution_network":    prop("string", "Attributed network"),
		"attribution_campaign":   prop("string", "Attributed campaign"),
	}, "uuid", "enabled", "session_count")
}

func packageSchema() map[string]interface{} {
	return record("Queued Package", "A package waiting for delivery", "package", map[string]interface{}{
		"position": prop("integer", "Queue position, 0 is the head"),
		"id":       prop("string", "Package identifier"),
		"kind": map[string]interface{}{
			"type": "string",
			"enum": []string{"session", "event", "revenue", "click"},
		},
		"path":       prop("string", "Collector path"),
		"suffix":     prop("string", "Human readable detail"),
		"created_at": map[string]interface{}{"type": "string", "format": "date-time"},
		"parameters": map[string]interface{}{
			"type":                 "object",
			"additionalProperties": map[string]interface{}{"type": "string"},
		},
	}, "position", "id", "kind", "path")
}

func resultSchema() map[string]interface{} {
	return record("Command Result", "Summary of a tracking command", "result", map[string]interface{}{
		"command": prop("string", "Command that ran"),
		"pending": prop("integer", "Packages still queued, -1 if unknown"),
		"drained": prop("boolean", "True when the queue was empty on exit"),
		"offline": prop("boolean", "True when delivery was held back"),
	}, "command", "pending", "drained")
}

func errorSchema() map[string]interface{} {
	return record("Error", "A failed command", "error", map[string]interface{}{
		"code":    prop("string", "Stable error code"),
		"message": prop("string", "Error message"),
		"hint":    prop("string", "Suggested fix"),
	}, "code", "message")
}

func versionSchema() map[string]interface{} {
	return record("Version", "Build information", "version", map[string]interface{}{
		"version":     prop("string", "CLI version"),
		"commit":      prop("string", "Git commit"),
		"sdk_version": prop("string", "SDK version"),
	}, "version")
}
