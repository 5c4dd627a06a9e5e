package live

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// maxEventBytes caps a single line and the data of a single event. Larger
// events are reported as oversized and the stream keeps going.
const maxEventBytes = 1 << 20

// event is one dispatched server-sent event.
type event struct {
	Type      string
	Data      string
	Oversized bool
}

// readEvents parses a text/event-stream body and calls fn for every complete
// event. It returns the read error, or nil when the stream ended cleanly.
func readEvents(r io.Reader, fn func(event)) error {
	br := bufio.NewReaderSize(r, 4096)

	var (
		eventType string
		data      []string
		size      int
		oversized bool
	)
	for {
		raw, tooLong, err := readLine(br, maxEventBytes)
		if err != nil {
			// An event without its terminating blank line is incomplete and dropped.
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if tooLong {
			oversized = true
			data = data[:0]
			continue
		}
		line := string(raw)
		if line == "" {
			switch {
			case oversized:
				fn(event{Type: eventType, Oversized: true})
			case len(data) > 0:
				fn(event{Type: eventType, Data: strings.Join(data, "\n")})
			}
			eventType = ""
			data = data[:0]
			size = 0
			oversized = false
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			if oversized {
				continue
			}
			size += len(value)
			if size > maxEventBytes {
				oversized = true
				data = data[:0]
				continue
			}
			data = append(data, value)
		case "event":
			eventType = value
		}
	}
}

// readLine returns one line without its terminator. A line longer than limit
// is consumed and discarded, reported through tooLong.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > limit+2 {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		break
	}
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return line, tooLong, nil
}
