package stream

import (
	"bufio"
	"io"
	"strings"
)

// Hydration phase markers sent as named events on the stream.
const (
	EventHydrate  = "hydrate"
	EventHydrated = "hydrated"
)

const maxLineSize = 1024 * 1024

// Event is one decoded server-sent event frame. Name is empty for default
// (unnamed) messages.
type Event struct {
	Name string
	Data []byte
}

// ReadEvents decodes text/event-stream frames from r and hands each
// complete frame to emit, until r ends or fails. Comment lines and fields
// other than event/data are ignored.
func ReadEvents(r io.Reader, emit func(Event)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var name string
	var data []byte
	pending := false

	dispatch := func() {
		if pending {
			emit(Event{Name: name, Data: data})
		}
		name = ""
		data = nil
		pending = false
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			dispatch()
		case strings.HasPrefix(line, ":"):
			// Keepalive comment.
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			pending = true
		case strings.HasPrefix(line, "data:"):
			value := strings.TrimPrefix(line, "data:")
			value = strings.TrimPrefix(value, " ")
			if data != nil {
				data = append(data, '\n')
			}
			data = append(data, value...)
			pending = true
		}
	}

	// An event not terminated by a blank line is incomplete and discarded.
	return scanner.Err()
}
