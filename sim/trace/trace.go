// Package trace collects the per-tick structured records of a run and writes
// them as JSON lines. Two runs with the same seed and scenario produce
// byte-identical trace output; the determinism tests compare these bytes.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
)

// RunTrace accumulates tick records and optionally streams them to a writer.
type RunTrace struct {
	Records []TickRecord

	w io.Writer
}

// NewRunTrace creates a trace. w may be nil to collect in memory only.
func NewRunTrace(w io.Writer) *RunTrace {
	return &RunTrace{w: w}
}

// Append records one tick. When a writer is attached the record is emitted
// immediately as one JSON line.
func (rt *RunTrace) Append(rec TickRecord) error {
	rt.Records = append(rt.Records, rec)
	if rt.w == nil {
		return nil
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling tick %d record: %w", rec.Tick, err)
	}
	if _, err := rt.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing tick %d record: %w", rec.Tick, err)
	}
	return nil
}

// Bytes renders the full trace as JSONL, regardless of any attached writer.
func (rt *RunTrace) Bytes() ([]byte, error) {
	var out []byte
	for _, rec := range rt.Records {
		line, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("marshaling tick %d record: %w", rec.Tick, err)
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out, nil
}
