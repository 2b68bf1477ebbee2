package testutil

import (
	"bufio"
	"encoding/json"
	"strings"
	"testing"
)

// SSEFrame is one parsed stream frame. The wire format is a "data:" line
// carrying a JSON object with a "type" discriminator, terminated by a
// blank line.
type SSEFrame struct {
	Type string // "type" field of the JSON payload
	Data string // raw JSON payload
}

// ParseSSEFrames parses an SSE response body into typed frames.
//
//   - Multiple "data:" lines in one event are joined with newline
//   - An empty line terminates a frame
//   - Comment lines starting with ":" are ignored
//
// Example:
//
//	frames := testutil.ParseSSEFrames(t, rec.Body.String())
//	require.Equal(t, "init", frames[0].Type)
func ParseSSEFrames(t *testing.T, body string) []SSEFrame {
	t.Helper()

	var frames []SSEFrame
	var dataLines []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))

		case line == "":
			if len(dataLines) > 0 {
				frames = append(frames, parseFrame(t, lineNum, strings.Join(dataLines, "\n")))
				dataLines = nil
			}

		default:
			if !strings.HasPrefix(line, ":") {
				t.Fatalf("SSE parse error at line %d: unexpected line %q", lineNum, line)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		t.Fatalf("SSE scan error: %v", err)
	}

	if len(dataLines) > 0 {
		t.Fatalf("SSE stream ended without terminating blank line (pending data %q)", dataLines[0])
	}

	return frames
}

func parseFrame(t *testing.T, lineNum int, data string) SSEFrame {
	t.Helper()

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(data), &envelope); err != nil {
		t.Fatalf("SSE parse error at line %d: invalid JSON payload %q: %v", lineNum, data, err)
	}
	if envelope.Type == "" {
		t.Fatalf("SSE parse error at line %d: payload missing type: %q", lineNum, data)
	}

	return SSEFrame{Type: envelope.Type, Data: data}
}

// FindFrame finds the first frame of a given type.
// Returns nil if not found.
func FindFrame(frames []SSEFrame, frameType string) *SSEFrame {
	for i := range frames {
		if frames[i].Type == frameType {
			return &frames[i]
		}
	}
	return nil
}

// FindAllFrames finds all frames of a given type.
func FindAllFrames(frames []SSEFrame, frameType string) []SSEFrame {
	var found []SSEFrame
	for _, f := range frames {
		if f.Type == frameType {
			found = append(found, f)
		}
	}
	return found
}

// DecodeFrame unmarshals a frame's payload into v.
func DecodeFrame(t *testing.T, frame *SSEFrame, v any) {
	t.Helper()

	if frame == nil {
		t.Fatal("DecodeFrame: nil frame")
	}
	if err := json.Unmarshal([]byte(frame.Data), v); err != nil {
		t.Fatalf("decoding frame %q: %v", frame.Type, err)
	}
}
