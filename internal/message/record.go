package message

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
)

// encodeRecord serializes m as a length-delimited record: a 4-byte
// big-endian length prefix followed by its gob encoding. Explicit
// length-delimiting (rather than relying on the decoder's own framing)
// guarantees every query path can deserialize every record in a file in
// one pass, which is what spec.md §4.2/§9 requires and what
// original_source's streaming deserializer failed to guarantee for some
// query paths.
func encodeRecord(m Message) ([]byte, error) {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(m); err != nil {
		return nil, fmt.Errorf("encode message record: %w", err)
	}
	var out bytes.Buffer
	if err := binary.Write(&out, binary.BigEndian, uint32(body.Len())); err != nil {
		return nil, fmt.Errorf("write record length: %w", err)
	}
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// decodeAllRecords fully deserializes every record in data into a slice,
// in the order they were appended (oldest first). It never halts after
// the first record: every call site that needs a subset filters this
// slice afterward rather than short-circuiting the decode.
func decodeAllRecords(data []byte) ([]Message, error) {
	r := bytes.NewReader(data)
	var out []Message
	for {
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, fmt.Errorf("read record length: %w", err)
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("read record body: %w", err)
		}
		var m Message
		if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&m); err != nil {
			return nil, fmt.Errorf("decode message record: %w", err)
		}
		out = append(out, m)
	}
}
