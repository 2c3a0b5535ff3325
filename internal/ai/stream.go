package ai

import (
	"bytes"
	"encoding/json"
)

// EventKind classifies one decoded stream line.
type EventKind int

const (
	// EventContent carries a fragment to append to the reply.
	EventContent EventKind = iota
	// EventDone is the [DONE] sentinel.
	EventDone
	// EventError is an {"error": ...} payload.
	EventError
)

// StreamEvent is one meaningful line of a chat stream.
type StreamEvent struct {
	Kind    EventKind
	Content string
}

const (
	doneSentinel = "[DONE]"
	dataField    = "data:"
)

// StreamDecoder splits a chat stream into events. Bytes after the last
// newline are held until a later Feed completes the line.
type StreamDecoder struct {
	carry []byte
}

// Feed consumes the next read and returns the events of every line it
// completed, in order.
func (d *StreamDecoder) Feed(p []byte) []StreamEvent {
	d.carry = append(d.carry, p...)

	var events []StreamEvent
	for {
		i := bytes.IndexByte(d.carry, '\n')
		if i < 0 {
			break
		}
		line := d.carry[:i]
		if ev, ok := parseLine(line); ok {
			events = append(events, ev)
		}
		d.carry = d.carry[i+1:]
	}

	// Compact so a long stream does not grow the backing array forever.
	if len(d.carry) == 0 {
		d.carry = d.carry[:0:0]
	}
	return events
}

// Pending returns the number of buffered bytes of an incomplete line.
func (d *StreamDecoder) Pending() int {
	return len(d.carry)
}

type streamPayload struct {
	Error   json.RawMessage `json:"error"`
	Content json.RawMessage `json:"content"`
}

// parseLine decodes a single line. Blank lines, SSE comments and
// anything that is not a recognised payload are skipped.
func parseLine(line []byte) (StreamEvent, bool) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 || line[0] == ':' {
		return StreamEvent{}, false
	}

	if bytes.HasPrefix(line, []byte(dataField)) {
		line = bytes.TrimPrefix(line[len(dataField):], []byte(" "))
	}
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return StreamEvent{}, false
	}

	if string(line) == doneSentinel {
		return StreamEvent{Kind: EventDone}, true
	}

	var p streamPayload
	if err := json.Unmarshal(line, &p); err != nil {
		return StreamEvent{}, false
	}
	if truthy(p.Error) {
		return StreamEvent{Kind: EventError}, true
	}

	var content string
	if len(p.Content) == 0 || json.Unmarshal(p.Content, &content) != nil || content == "" {
		return StreamEvent{}, false
	}
	return StreamEvent{Kind: EventContent, Content: content}, true
}

// truthy reports whether a JSON value is set to something other than
// null, false, zero or the empty string.
func truthy(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", `""`, "0":
		return false
	}
	return true
}
