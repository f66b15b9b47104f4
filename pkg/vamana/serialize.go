package vamana

import (
	"bufio"
	"encoding/binary"
	"io"
)

// graphMagic and graphVersion identify the on-wire graph format (spec
// section 6): a self-describing big-endian header followed by one record
// per allocated node, in ordinal order.
const (
	graphMagic   uint32 = 0x56414D41 // "VAMA"
	graphVersion uint32 = 1
)

// WriteGraph serializes idx's graph and vectors to w in the wire format:
//
//	u32 magic, u32 version, u32 dimension, u8 similarity_code,
//	u32 size, u32 entry_point, u16 m,
//	then per node: dimension*f32 vector, u16 neighbor_count, neighbor_count*u32 ordinals
//
// (spec section 6, component C10).
func WriteGraph(w io.Writer, idx *Index) error {
	bw := bufio.NewWriter(w)

	entry, _ := idx.graph.Entry()
	size := idx.graph.Allocated()

	header := []interface{}{
		graphMagic,
		graphVersion,
		uint32(idx.cfg.Dimension),
		idx.cfg.Similarity.Code(),
		uint32(size),
		entry,
		uint16(idx.cfg.M),
	}
	for _, field := range header {
		if err := binary.Write(bw, binary.BigEndian, field); err != nil {
			return err
		}
	}

	for ord := uint32(0); int(ord) < size; ord++ {
		vec, ok := idx.provider.VectorAt(ord)
		if !ok {
			return wrapErr(KindSerializationCorrupt, "missing vector for allocated ordinal", nil)
		}
		if err := binary.Write(bw, binary.BigEndian, vec); err != nil {
			return err
		}

		nl := idx.graph.Neighbors(ord)
		var neighbors []Candidate
		if nl != nil {
			neighbors = nl.Snapshot()
		}
		if err := binary.Write(bw, binary.BigEndian, uint16(len(neighbors))); err != nil {
			return err
		}
		for _, n := range neighbors {
			if err := binary.Write(bw, binary.BigEndian, n.Ordinal); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// ReadGraph deserializes a graph previously written by WriteGraph into a
// fresh Index. Edge scores are not stored on the wire; they are
// recomputed from the raw vectors as each node's neighbor list is loaded,
// so a round trip reproduces an equivalent (if not byte-identical, since
// float recomputation can differ in the last bit) searchable graph.
func ReadGraph(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)

	var magic uint32
	if err := binary.Read(br, binary.BigEndian, &magic); err != nil {
		return nil, wrapErr(KindSerializationCorrupt, "reading magic", err)
	}
	if magic != graphMagic {
		return nil, newErr(KindSerializationCorrupt, "bad magic number")
	}

	var version uint32
	if err := binary.Read(br, binary.BigEndian, &version); err != nil {
		return nil, wrapErr(KindSerializationCorrupt, "reading version", err)
	}
	if version != graphVersion {
		return nil, newErr(KindSerializationCorrupt, "unsupported graph version")
	}

	var dim, size, entry uint32
	var m uint16
	var simCode byte
	if err := binary.Read(br, binary.BigEndian, &dim); err != nil {
		return nil, wrapErr(KindSerializationCorrupt, "reading dimension", err)
	}
	if err := binary.Read(br, binary.BigEndian, &simCode); err != nil {
		return nil, wrapErr(KindSerializationCorrupt, "reading similarity code", err)
	}
	sim, ok := ParseSimilarity(simCode)
	if !ok {
		return nil, newErr(KindSerializationCorrupt, "unknown similarity code")
	}
	if err := binary.Read(br, binary.BigEndian, &size); err != nil {
		return nil, wrapErr(KindSerializationCorrupt, "reading size", err)
	}
	if err := binary.Read(br, binary.BigEndian, &entry); err != nil {
		return nil, wrapErr(KindSerializationCorrupt, "reading entry point", err)
	}
	if err := binary.Read(br, binary.BigEndian, &m); err != nil {
		return nil, wrapErr(KindSerializationCorrupt, "reading m", err)
	}

	cfg := DefaultConfig(int(dim), sim)
	cfg.M = int(m)
	idx, err := NewIndex(cfg)
	if err != nil {
		return nil, err
	}

	type pendingNode struct {
		neighbors []uint32
	}
	pending := make([]pendingNode, size)

	for ord := uint32(0); int(ord) < int(size); ord++ {
		vec := make([]float32, dim)
		if err := binary.Read(br, binary.BigEndian, vec); err != nil {
			return nil, wrapErr(KindSerializationCorrupt, "reading vector", err)
		}
		gotOrd := idx.provider.Append(vec)
		graphOrd := idx.graph.AllocateNode()
		if gotOrd != ord || graphOrd != ord {
			return nil, newErr(KindSerializationCorrupt, "ordinal sequence mismatch while loading")
		}

		var neighborCount uint16
		if err := binary.Read(br, binary.BigEndian, &neighborCount); err != nil {
			return nil, wrapErr(KindSerializationCorrupt, "reading neighbor count", err)
		}
		neighbors := make([]uint32, neighborCount)
		if err := binary.Read(br, binary.BigEndian, neighbors); err != nil {
			return nil, wrapErr(KindSerializationCorrupt, "reading neighbor ordinals", err)
		}
		pending[ord] = pendingNode{neighbors: neighbors}
	}

	for ord := uint32(0); int(ord) < int(size); ord++ {
		vec, _ := idx.provider.VectorAt(ord)
		candidates := make([]Candidate, 0, len(pending[ord].neighbors))
		for _, nbOrd := range pending[ord].neighbors {
			nbVec, ok := idx.provider.VectorAt(nbOrd)
			if !ok {
				return nil, newErr(KindSerializationCorrupt, "neighbor ordinal out of range")
			}
			candidates = append(candidates, Candidate{Ordinal: nbOrd, Score: sim.Score(vec, nbVec)})
		}
		sortCandidatesDesc(candidates)
		idx.graph.Neighbors(ord).Seed(candidates)
		idx.graph.Publish(ord)
	}

	if size > 0 {
		idx.graph.SetEntry(entry)
	}

	return idx, nil
}
