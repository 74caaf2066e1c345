package plugins

import (
	"fmt"

	"github.com/trellisdev/trellis/internal/task"
)

var _ task.Action = Script{}

// Register installs the script action factory. Payload keys: path (required),
// func (optional, defaults to Run), args (optional list of strings).
func Register(reg *task.Registry) {
	reg.MustRegister(Kind, func(payload task.Payload) (task.Action, error) {
		path, err := requiredString(payload, "path")
		if err != nil {
			return nil, err
		}
		funcName, err := optionalString(payload, "func")
		if err != nil {
			return nil, err
		}
		args, err := optionalStringSlice(payload, "args")
		if err != nil {
			return nil, err
		}
		return Script{Path: path, Func: funcName, Args: args}, nil
	})
}

func requiredString(payload task.Payload, key string) (string, error) {
	raw, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("plugins: payload key %s is required", key)
	}
	text, ok := raw.(string)
	if !ok || text == "" {
		return "", fmt.Errorf("plugins: payload key %s must be a non-empty string", key)
	}
	return text, nil
}

func optionalString(payload task.Payload, key string) (string, error) {
	raw, ok := payload[key]
	if !ok {
		return "", nil
	}
	text, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("plugins: payload key %s must be a string", key)
	}
	return text, nil
}

func optionalStringSlice(payload task.Payload, key string) ([]string, error) {
	raw, ok := payload[key]
	if !ok {
		return nil, nil
	}
	switch value := raw.(type) {
	case []string:
		return append([]string{}, value...), nil
	case []any:
		out := make([]string, 0, len(value))
		for idx, element := range value {
			text, ok := element.(string)
			if !ok {
				return nil, fmt.Errorf("plugins: payload key %s[%d] must be a string", key, idx)
			}
			out = append(out, text)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("plugins: payload key %s must be a list of strings", key)
	}
}
