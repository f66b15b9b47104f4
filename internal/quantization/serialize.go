package quantization

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// codecMagic and codecVersion identify the on-wire PQ codec format (spec
// section 6): a self-describing big-endian header, the subspace partition,
// the optional centroid, and then every subspace's codebook in order.
const (
	codecMagic   uint32 = 0x50514331 // "PQC1"
	codecVersion uint16 = 1
)

// WriteCodec serializes c to w.
func WriteCodec(w io.Writer, c *Codec) error {
	bw := bufio.NewWriter(w)

	fields := []interface{}{
		codecMagic,
		codecVersion,
		uint32(c.dim),
		uint32(len(c.subspaceDims)),
		c.centered,
	}
	for _, f := range fields {
		if err := binary.Write(bw, binary.BigEndian, f); err != nil {
			return err
		}
	}

	for _, w32 := range c.subspaceDims {
		if err := binary.Write(bw, binary.BigEndian, uint32(w32)); err != nil {
			return err
		}
	}

	if c.centered {
		if err := binary.Write(bw, binary.BigEndian, c.centroid); err != nil {
			return err
		}
	}

	for s, codebook := range c.codebooks {
		if len(codebook) != codebookSize {
			return fmt.Errorf("quantization: subspace %d has %d centroids, want %d", s, len(codebook), codebookSize)
		}
		for _, centroid := range codebook {
			if err := binary.Write(bw, binary.BigEndian, centroid); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// ReadCodec deserializes a codec previously written by WriteCodec.
func ReadCodec(r io.Reader) (*Codec, error) {
	br := bufio.NewReader(r)

	var magic uint32
	if err := binary.Read(br, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("quantization: reading magic: %w", err)
	}
	if magic != codecMagic {
		return nil, fmt.Errorf("quantization: bad codec magic number")
	}

	var version uint16
	if err := binary.Read(br, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("quantization: reading version: %w", err)
	}
	if version != codecVersion {
		return nil, fmt.Errorf("quantization: unsupported codec version %d", version)
	}

	var dim, numSub uint32
	var centered bool
	if err := binary.Read(br, binary.BigEndian, &dim); err != nil {
		return nil, fmt.Errorf("quantization: reading dimension: %w", err)
	}
	if err := binary.Read(br, binary.BigEndian, &numSub); err != nil {
		return nil, fmt.Errorf("quantization: reading subspace count: %w", err)
	}
	if err := binary.Read(br, binary.BigEndian, &centered); err != nil {
		return nil, fmt.Errorf("quantization: reading centered flag: %w", err)
	}

	widths := make([]int, numSub)
	for i := range widths {
		var w32 uint32
		if err := binary.Read(br, binary.BigEndian, &w32); err != nil {
			return nil, fmt.Errorf("quantization: reading subspace width %d: %w", i, err)
		}
		widths[i] = int(w32)
	}

	c, err := NewCodec(int(dim), widths, centered, DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("quantization: reconstructing codec: %w", err)
	}

	if c.centered {
		c.centroid = make([]float32, c.dim)
		if err := binary.Read(br, binary.BigEndian, c.centroid); err != nil {
			return nil, fmt.Errorf("quantization: reading centroid: %w", err)
		}
	}

	for s := range c.subspaceDims {
		codebook := make([][]float32, codebookSize)
		for code := range codebook {
			centroid := make([]float32, c.subspaceDims[s])
			if err := binary.Read(br, binary.BigEndian, centroid); err != nil {
				return nil, fmt.Errorf("quantization: reading centroid subspace %d code %d: %w", s, code, err)
			}
			codebook[code] = centroid
		}
		c.codebooks[s] = codebook
	}

	return c, nil
}
