package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// getOptionalString extracts an optional string parameter from the request.
func getOptionalString(req mcp.CallToolRequest, key string) (string, bool) {
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		if val, ok := args[key].(string); ok {
			return val, true
		}
	}
	return "", false
}

// getOptionalBool extracts an optional boolean parameter from the request.
func getOptionalBool(req mcp.CallToolRequest, key string) (bool, bool) {
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		if val, ok := args[key].(bool); ok {
			return val, true
		}
	}
	return false, false
}

// getOptionalInt extracts an optional integer parameter from the request.
// JSON numbers arrive as float64.
func getOptionalInt(req mcp.CallToolRequest, key string) (int, bool) {
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		switch v := args[key].(type) {
		case float64:
			return int(v), true
		case int:
			return v, true
		}
	}
	return 0, false
}

// getOptionalObject extracts an optional object parameter from the request.
func getOptionalObject(req mcp.CallToolRequest, key string) (map[string]any, bool) {
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		if val, ok := args[key].(map[string]any); ok {
			return val, true
		}
	}
	return nil, false
}

// getOptionalStringSlice extracts an optional string-array parameter.
func getOptionalStringSlice(req mcp.CallToolRequest, key string) ([]string, bool) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil, false
	}
	raw, ok := args[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}
