package vectorindex

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/models"
)

// Index couples a FlatIndex with its chunk docstore and the slot-to-chunk-id
// mapping. The three collections form one logical unit: they are only ever
// updated together under the mutex, so a reader never observes a vector
// without its chunk.
type Index struct {
	mu       sync.RWMutex
	flat     *FlatIndex
	docstore map[string]models.Chunk
	slotToID map[int]string
}

// Hit is one search result: a resolved chunk and its distance to the query.
type Hit struct {
	Chunk    models.Chunk
	Distance float32
}

// New creates an empty index for the given embedding dimension. Empty is a
// valid state: searches return no results until chunks are added.
func New(dim int) (*Index, error) {
	flat, err := NewFlatIndex(dim)
	if err != nil {
		return nil, err
	}
	return &Index{
		flat:     flat,
		docstore: make(map[string]models.Chunk),
		slotToID: make(map[int]string),
	}, nil
}

// Dimension returns the embedding dimension the index was built for.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.flat.Dimension()
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.flat.Ntotal()
}

// IsEmpty reports whether the index holds no vectors.
func (ix *Index) IsEmpty() bool { return ix.Len() == 0 }

// AddBatch commits chunks and their embedding vectors as one unit. The two
// slices must correspond position-wise; on any validation failure nothing
// from the batch is committed.
func (ix *Index) AddBatch(chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return apperr.New(apperr.KindEmbedding,
			fmt.Sprintf("have %d chunks but %d vectors", len(chunks), len(vectors)))
	}
	for i, c := range chunks {
		if c.ChunkID == "" {
			return apperr.New(apperr.KindValidation, fmt.Sprintf("chunk %d has no id", i))
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	// Validate dimensions before touching any state: Add is all-or-nothing
	// for the whole batch.
	dim := ix.flat.Dimension()
	for i, v := range vectors {
		if len(v) != dim {
			return apperr.New(apperr.KindConfiguration,
				fmt.Sprintf("vector %d has dimension %d, index expects %d", i, len(v), dim))
		}
	}

	base := ix.flat.Ntotal()
	if err := ix.flat.Add(vectors); err != nil {
		return err
	}
	for i, c := range chunks {
		ix.docstore[c.ChunkID] = c
		ix.slotToID[base+i] = c.ChunkID
	}
	return nil
}

// Search returns the k nearest chunks in ascending distance order. Every
// returned hit resolves through the docstore; a dangling slot means the
// snapshot was corrupted and is reported as a persistence error.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	slots, err := ix.flat.Search(query, k)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(slots))
	for _, s := range slots {
		id, ok := ix.slotToID[s.Position]
		if !ok {
			return nil, apperr.New(apperr.KindPersistence,
				fmt.Sprintf("slot %d has no chunk id mapping", s.Position))
		}
		chunk, ok := ix.docstore[id]
		if !ok {
			return nil, apperr.New(apperr.KindPersistence,
				fmt.Sprintf("chunk %s missing from docstore", id))
		}
		hits = append(hits, Hit{Chunk: chunk, Distance: s.Distance})
	}
	return hits, nil
}

// Resolve looks up a chunk by id.
func (ix *Index) Resolve(chunkID string) (models.Chunk, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	c, ok := ix.docstore[chunkID]
	return c, ok
}

// Snapshot is the serialized triple persisted per course: the vector matrix,
// the chunk docstore, and the slot-to-chunk-id mapping.
type Snapshot struct {
	Index    []byte
	Docstore []byte
	Mapping  []byte
}

// Snapshot serializes the index into its three artifacts.
func (ix *Index) Snapshot() (*Snapshot, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	indexBytes, err := ix.flat.MarshalBinary()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "serialize vector index", err)
	}

	var docBuf bytes.Buffer
	if err := gob.NewEncoder(&docBuf).Encode(ix.docstore); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "serialize docstore", err)
	}

	var mapBuf bytes.Buffer
	if err := gob.NewEncoder(&mapBuf).Encode(ix.slotToID); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "serialize slot mapping", err)
	}

	return &Snapshot{
		Index:    indexBytes,
		Docstore: docBuf.Bytes(),
		Mapping:  mapBuf.Bytes(),
	}, nil
}

// FromSnapshot reconstructs an index from its three artifacts. A count
// disagreement between the vectors, the mapping and the docstore marks a
// partially written snapshot and fails as a persistence error rather than
// serving wrong answers.
func FromSnapshot(snap *Snapshot) (*Index, error) {
	flat, err := UnmarshalFlatIndex(snap.Index)
	if err != nil {
		return nil, err
	}

	var docstore map[string]models.Chunk
	if err := gob.NewDecoder(bytes.NewReader(snap.Docstore)).Decode(&docstore); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "decode docstore", err)
	}

	var slotToID map[int]string
	if err := gob.NewDecoder(bytes.NewReader(snap.Mapping)).Decode(&slotToID); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "decode slot mapping", err)
	}

	n := flat.Ntotal()
	if len(slotToID) != n || len(docstore) != n {
		return nil, apperr.New(apperr.KindPersistence,
			fmt.Sprintf("inconsistent snapshot: %d vectors, %d mappings, %d chunks",
				n, len(slotToID), len(docstore)))
	}
	for slot := 0; slot < n; slot++ {
		id, ok := slotToID[slot]
		if !ok {
			return nil, apperr.New(apperr.KindPersistence, fmt.Sprintf("snapshot missing slot %d", slot))
		}
		if _, ok := docstore[id]; !ok {
			return nil, apperr.New(apperr.KindPersistence,
				fmt.Sprintf("snapshot slot %d references unknown chunk %s", slot, id))
		}
	}

	return &Index{flat: flat, docstore: docstore, slotToID: slotToID}, nil
}
