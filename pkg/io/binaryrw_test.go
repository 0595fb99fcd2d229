package io

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mocks io.Writer to always fail.
type badRW struct{}

func (w *badRW) Write(p []byte) (int, error) {
	return 0, errors.New("it always fails")
}

func TestWriteBytes(t *testing.T) {
	var bin = []byte{0xde, 0xad, 0xbe, 0xef}
	bw := NewBufBinWriter()
	bw.WriteBytes(bin)
	require.NoError(t, bw.Err)
	assert.Equal(t, bin, bw.Bytes())

	br := NewBinReaderFromBuf(bin)
	buf := make([]byte, 4)
	br.ReadBytes(buf)
	require.NoError(t, br.Err)
	assert.Equal(t, bin, buf)
}

func TestReadErrors(t *testing.T) {
	bin := []byte{0xad, 0xde, 0x11, 0x5a, 0xe1, 0x0d, 0xdc, 0xba}
	br := NewBinReaderFromBuf(bin)
	// Prime the buffers with something.
	_ = br.ReadU64LE()
	assert.NoError(t, br.Err)

	assert.Equal(t, uint64(0), br.ReadU64LE())
	assert.Equal(t, uint32(0), br.ReadU32LE())
	assert.Equal(t, byte(0), br.ReadB())
	assert.Equal(t, uint64(0), br.ReadVarUint())
	assert.Error(t, br.Err)

	// Short buffer is reported as EOF.
	br = NewBinReaderFromBuf([]byte{1, 2})
	br.ReadBytes(make([]byte, 3))
	assert.ErrorIs(t, br.Err, io.EOF)
}

func TestBufBinWriterErr(t *testing.T) {
	bw := NewBufBinWriter()
	bw.WriteVarUint(0)
	assert.Nil(t, bw.Err)
	// inject error
	bw.Err = errors.New("oopsie")
	res := bw.Bytes()
	assert.NotNil(t, bw.Err)
	assert.Nil(t, res)
}

func TestBufBinWriterDrained(t *testing.T) {
	bw := NewBufBinWriter()
	bw.WriteVarUint(1)
	require.Equal(t, []byte{1}, bw.Bytes())
	assert.ErrorIs(t, bw.Err, ErrDrained)
	bw.WriteVarUint(2)
	assert.Nil(t, bw.Bytes())
}

func TestWriteVarUint(t *testing.T) {
	for _, tc := range []struct {
		val uint64
		len int
	}{
		{0, 1},
		{0xfc, 1},
		{0xfd, 3},
		{0xfffe, 3},
		{0xffff, 5},
		{0xfffffffe, 5},
		{0xffffffff, 9},
		{0xffffffffffffffff, 9},
	} {
		bw := NewBufBinWriter()
		bw.WriteVarUint(tc.val)
		require.NoError(t, bw.Err)
		buf := bw.Bytes()
		assert.Equal(t, tc.len, len(buf), "value %x", tc.val)
		br := NewBinReaderFromBuf(buf)
		assert.Equal(t, tc.val, br.ReadVarUint())
		require.NoError(t, br.Err)
	}
}

func TestWriterErrHandling(t *testing.T) {
	var badio = &badRW{}
	bw := NewBinWriterFromIO(badio)
	bw.WriteBytes([]byte{0})
	assert.NotNil(t, bw.Err)
	// these should work (without panic), preserving the Err
	bw.WriteVarUint(0xffff)
	bw.WriteBytes([]byte{0x55, 0xaa})
	assert.NotNil(t, bw.Err)
}
