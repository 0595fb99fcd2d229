package indexer

import (
	"github.com/mptindexer/mpt-indexer/pkg/core/storage"
	"github.com/mptindexer/mpt-indexer/pkg/io"
	"github.com/mptindexer/mpt-indexer/pkg/util"
)

// StateRoot is the persisted summary of the trie, it's updated with every
// change of the trie contents.
type StateRoot struct {
	Root  util.Uint256
	Count uint64
}

// EncodeBinary implements the io.Serializable interface.
func (s *StateRoot) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(s.Root[:])
	w.WriteVarUint(s.Count)
}

// DecodeBinary implements the io.Serializable interface.
func (s *StateRoot) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(s.Root[:])
	s.Count = r.ReadVarUint()
}

func (s *StateRoot) bytes() []byte {
	w := io.NewBufBinWriter()
	s.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

func getStateRoot(st storage.Store) (*StateRoot, error) {
	data, err := st.Get(storage.SYSStateRoot.Bytes())
	if err != nil {
		return nil, err
	}
	sr := new(StateRoot)
	r := io.NewBinReaderFromBuf(data)
	sr.DecodeBinary(r)
	return sr, r.Err
}

// makeEntryKey returns the storage key for the trie key.
func makeEntryKey(key []byte) []byte {
	k := make([]byte, 1+len(key))
	k[0] = byte(storage.DataMPT)
	copy(k[1:], key)
	return k
}
