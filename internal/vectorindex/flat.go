package vectorindex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"eduvisor-backend/internal/apperr"
)

// FlatIndex is a dense, exhaustive L2 index: vectors are stored row-major in
// a single float32 slice and every search scans all of them. Distances are
// squared Euclidean, so smaller means closer.
type FlatIndex struct {
	dim  int
	data []float32
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, apperr.New(apperr.KindConfiguration, fmt.Sprintf("invalid vector dimension %d", dim))
	}
	return &FlatIndex{dim: dim}, nil
}

// Dimension returns the vector dimension the index was built for.
func (f *FlatIndex) Dimension() int { return f.dim }

// Ntotal returns the number of stored vectors.
func (f *FlatIndex) Ntotal() int { return len(f.data) / f.dim }

// Add appends vectors to the index. All vectors must match the index
// dimension; on mismatch nothing is appended.
func (f *FlatIndex) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return apperr.New(apperr.KindConfiguration,
				fmt.Sprintf("vector %d has dimension %d, index expects %d", i, len(v), f.dim))
		}
	}
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Slot pairs a vector slot with its squared L2 distance to a query.
type Slot struct {
	Position int
	Distance float32
}

// Search returns the k nearest slots in ascending distance order. Fewer than
// k results are returned when the index holds fewer vectors; an empty index
// yields an empty result, not an error.
func (f *FlatIndex) Search(query []float32, k int) ([]Slot, error) {
	if len(query) != f.dim {
		return nil, apperr.New(apperr.KindConfiguration,
			fmt.Sprintf("query has dimension %d, index expects %d", len(query), f.dim))
	}
	n := f.Ntotal()
	if n == 0 || k <= 0 {
		return []Slot{}, nil
	}

	slots := make([]Slot, n)
	for i := 0; i < n; i++ {
		row := f.data[i*f.dim : (i+1)*f.dim]
		var dist float32
		for j, q := range query {
			d := row[j] - q
			dist += d * d
		}
		slots[i] = Slot{Position: i, Distance: dist}
	}

	// Stable sort keeps ties in insertion order for deterministic results.
	sort.SliceStable(slots, func(a, b int) bool {
		return slots[a].Distance < slots[b].Distance
	})

	if k > n {
		k = n
	}
	return slots[:k], nil
}

const (
	flatIndexMagic   = uint32(0x45564649) // "EVFI"
	flatIndexVersion = uint32(1)
)

// MarshalBinary serializes the index: magic, version, dimension, vector
// count, then the raw float32 matrix, all little-endian.
func (f *FlatIndex) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	header := []uint32{flatIndexMagic, flatIndexVersion, uint32(f.dim), uint32(f.Ntotal())}
	for _, h := range header {
		if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(&buf, binary.LittleEndian, f.data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalFlatIndex reconstructs a FlatIndex from its serialized form.
func UnmarshalFlatIndex(raw []byte) (*FlatIndex, error) {
	r := bytes.NewReader(raw)
	var magic, version, dim, count uint32
	for _, dst := range []*uint32{&magic, &version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, apperr.Wrap(apperr.KindPersistence, "truncated index header", err)
		}
	}
	if magic != flatIndexMagic {
		return nil, apperr.New(apperr.KindPersistence, "not a serialized flat index")
	}
	if version != flatIndexVersion {
		return nil, apperr.New(apperr.KindPersistence, fmt.Sprintf("unsupported index version %d", version))
	}
	if dim == 0 {
		return nil, apperr.New(apperr.KindPersistence, "serialized index has zero dimension")
	}

	data := make([]float32, int(dim)*int(count))
	if err := binary.Read(r, binary.LittleEndian, &data); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "truncated index data", err)
	}
	return &FlatIndex{dim: int(dim), data: data}, nil
}
