// Package codec encodes performance records into their structured export
// form, optionally wrapped in a compression envelope.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethpandaops/opmetrics/internal/metrics"
)

// Marshal encodes rec as indented JSON compressed with the named algorithm.
func Marshal(rec *metrics.Record, compression string) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}

	c, err := NewCompressor(compression)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	out, err := c.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("compressing record: %w", err)
	}

	return out, nil
}

// Unmarshal decodes a record produced by Marshal with the same algorithm.
func Unmarshal(data []byte, compression string) (*metrics.Record, error) {
	c, err := NewCompressor(compression)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	raw, err := c.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompressing record: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	rec := &metrics.Record{}
	if err := dec.Decode(rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}

	return rec, nil
}

// Write encodes rec to w.
func Write(w io.Writer, rec *metrics.Record, compression string) error {
	data, err := Marshal(rec, compression)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}

	return nil
}

// Read decodes one record from r.
func Read(r io.Reader, compression string) (*metrics.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}

	return Unmarshal(data, compression)
}
