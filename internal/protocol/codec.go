package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// maxFrameSize bounds a single JSON line; transcript paths and hook
// payloads are small, so 1MiB leaves generous headroom without letting one
// misbehaving client exhaust memory.
const maxFrameSize = 1024 * 1024

// Decoder reads newline-delimited JSON values from a connection.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder wraps r with a scanner sized for one-JSON-object-per-line
// framing.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	return &Decoder{scanner: scanner}
}

// Decode reads the next line and unmarshals it into v. ok is false when the
// stream ended cleanly (EOF); err is non-nil only for malformed frames or
// read failures.
func (d *Decoder) Decode(v any) (ok bool, err error) {
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return false, fmt.Errorf("protocol: read frame: %w", err)
		}
		return false, nil
	}
	if err := json.Unmarshal(d.scanner.Bytes(), v); err != nil {
		return false, fmt.Errorf("protocol: decode frame: %w", err)
	}
	return true, nil
}

// Encoder writes newline-delimited JSON values to a connection.
type Encoder struct {
	w io.Writer
}

// NewEncoder wraps w for one-JSON-object-per-line framing.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode marshals v and writes it followed by a newline.
func (e *Encoder) Encode(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: encode frame: %w", err)
	}
	data = append(data, '\n')
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("protocol: write frame: %w", err)
	}
	return nil
}
