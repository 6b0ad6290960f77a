package piper

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Wyoming frames each event as
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>   (if payload_length > 0)
type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

func writeEvent(w io.Writer, evt event, payload []byte) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d\n", len(body), len(payload))
	buf.Write(body)
	buf.WriteByte('\n')
	buf.Write(payload)

	_, err = w.Write(buf.Bytes())
	return err
}

type eventReader struct {
	r *bufio.Reader
}

func newEventReader(r io.Reader) *eventReader {
	return &eventReader{r: bufio.NewReader(r)}
}

func (er *eventReader) next() (event, []byte, error) {
	header, err := er.r.ReadString('\n')
	if err != nil {
		return event{}, nil, fmt.Errorf("reading header: %w", err)
	}

	jsonField, payloadField, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return event{}, nil, fmt.Errorf("invalid wyoming header: %q", header)
	}
	jsonLen, err := strconv.Atoi(jsonField)
	if err != nil {
		return event{}, nil, fmt.Errorf("parsing json_length: %w", err)
	}
	payloadLen, err := strconv.Atoi(payloadField)
	if err != nil {
		return event{}, nil, fmt.Errorf("parsing payload_length: %w", err)
	}

	body := make([]byte, jsonLen+1)
	if _, err := io.ReadFull(er.r, body); err != nil {
		return event{}, nil, fmt.Errorf("reading json: %w", err)
	}

	var evt event
	if err := json.Unmarshal(body[:jsonLen], &evt); err != nil {
		return event{}, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(er.r, payload); err != nil {
			return event{}, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return evt, payload, nil
}

// pcmFormat describes raw PCM as announced by audio-start.
type pcmFormat struct {
	rate, channels, width int
}

func (f pcmFormat) update(data map[string]any) pcmFormat {
	if v, ok := data["rate"].(float64); ok {
		f.rate = int(v)
	}
	if v, ok := data["channels"].(float64); ok {
		f.channels = int(v)
	}
	if v, ok := data["width"].(float64); ok {
		f.width = int(v)
	}
	return f
}

// wav wraps pcm in a 44-byte RIFF header.
func (f pcmFormat) wav(pcm []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	le := binary.LittleEndian
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, le, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	for _, v := range []any{
		uint32(16),
		uint16(1), // PCM
		uint16(f.channels),
		uint32(f.rate),
		uint32(f.rate * f.channels * f.width),
		uint16(f.channels * f.width),
		uint16(f.width * 8),
	} {
		_ = binary.Write(&buf, le, v)
	}
	buf.WriteString("data")
	_ = binary.Write(&buf, le, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
