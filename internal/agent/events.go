package agent

import (
	"encoding/json"
)

// Event is one structured line from the agent's stdout stream.
type Event struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Tool string `json:"tool,omitempty"`
	Name string `json:"name,omitempty"`
	Err  string `json:"error,omitempty"`
}

// DecodeEvent parses a single stdout line as an agent event. The second
// return value is false when the line is not a recognizable event; callers
// count those discards instead of dropping them invisibly. The event stream
// is best-effort — it never decides success on its own.
func DecodeEvent(line []byte) (Event, bool) {
	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		return Event{}, false
	}

	switch ev.Type {
	case "text", "step_finish", "error":
		return ev, true
	case "tool_use", "tool":
		// Some agent versions emit "tool_use", others "tool"; normalize.
		ev.Type = "tool"
		if ev.Tool == "" {
			ev.Tool = ev.Name
		}
		return ev, true
	default:
		return Event{}, false
	}
}
