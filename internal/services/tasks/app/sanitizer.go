package app

import (
	"fmt"

	"github.com/louisbranch/offline-tasks/internal/platform/msgchan"
)

// SanitizerResponder answers html-sanitizer posts: the reply keeps every
// extra field and adds result = count + increment.
func SanitizerResponder(msg msgchan.Message) (msgchan.Message, error) {
	count, err := number(msg["count"])
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}
	increment, err := number(msg["increment"])
	if err != nil {
		return nil, fmt.Errorf("increment: %w", err)
	}
	out := make(msgchan.Message, len(msg))
	for key, value := range msg {
		switch key {
		case "count", "increment", msgchan.IDField:
			continue
		}
		out[key] = value
	}
	out["result"] = count + increment
	return out, nil
}

func number(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case nil:
		return 0, fmt.Errorf("missing number")
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
}
