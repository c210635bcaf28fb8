package kv

import (
	"fmt"

	"github.com/kelindar/binary"
)

func encodeSnapshot(snap modelSnapshot) ([]byte, error) {
	encoded, err := binary.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode model snapshot: %w", err)
	}
	return compress(encoded)
}

func decodeSnapshot(bbCompressed []byte) (modelSnapshot, error) {
	var snap modelSnapshot
	bb, err := decompress(bbCompressed)
	if err != nil {
		return snap, fmt.Errorf("decompress model snapshot: %w", err)
	}
	err = binary.Unmarshal(bb, &snap)
	return snap, err
}

func encodeTrace(trace TraceRecord) ([]byte, error) {
	encoded, err := binary.Marshal(trace)
	if err != nil {
		return nil, fmt.Errorf("encode trace: %w", err)
	}
	return compress(encoded)
}

func decodeTrace(bbCompressed []byte) (TraceRecord, error) {
	var trace TraceRecord
	bb, err := decompress(bbCompressed)
	if err != nil {
		return trace, fmt.Errorf("decompress trace: %w", err)
	}
	err = binary.Unmarshal(bb, &trace)
	return trace, err
}
