package mpt

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/mptindexer/mpt-indexer/pkg/io"
)

// SerializableEncoder encodes values with their own binary serialization.
type SerializableEncoder[V io.Serializable] struct{}

// Encode implements Encoder interface.
func (SerializableEncoder[V]) Encode(v V) ([]byte, error) {
	w := io.NewBufBinWriter()
	v.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

// CBOREncoder encodes arbitrary values using CBOR Core Deterministic
// Encoding (RFC 8949, section 4.2.1), so map key order and integer widths
// never affect the result.
type CBOREncoder[V any] struct {
	mode cbor.EncMode
}

// NewCBOREncoder creates a deterministic CBOR encoder.
func NewCBOREncoder[V any]() (*CBOREncoder[V], error) {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoding mode: %w", err)
	}
	return &CBOREncoder[V]{mode: mode}, nil
}

// Encode implements Encoder interface.
func (e *CBOREncoder[V]) Encode(v V) ([]byte, error) {
	return e.mode.Marshal(v)
}
