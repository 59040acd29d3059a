package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/internal/blob"
	"eduvisor-backend/internal/config"
	"eduvisor-backend/internal/logger"
	"eduvisor-backend/internal/vectorindex"
	"eduvisor-backend/utils"
)

const (
	indexArtifact    = "index.bin"
	metadataArtifact = "metadata.bin"
	mappingArtifact  = "mapping.bin"
)

// VectorstoreService persists course indexes as three blob artifacts and
// caches loaded indexes with a time-based expiry. The three writes are
// not atomic; a torn snapshot is detected on load by the reconstruction
// count checks and surfaced as a persistence error.
type VectorstoreService struct {
	store blob.Store
	ttl   time.Duration

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

type cacheEntry struct {
	index    *vectorindex.Index
	loadedAt time.Time
}

// NewVectorstoreService creates the persistence adapter over the given
// blob store.
func NewVectorstoreService(store blob.Store, cfg *config.Config) *VectorstoreService {
	return &VectorstoreService{
		store: store,
		ttl:   cfg.IndexCacheTTL,
		cache: make(map[string]*cacheEntry),
	}
}

func artifactKey(courseID, name string) string {
	return fmt.Sprintf("vectorstore/%s/%s", courseID, name)
}

// Save writes the index snapshot under the course's storage prefix and
// invalidates the cache entry so concurrent readers do not keep serving
// the pre-save state.
func (s *VectorstoreService) Save(ctx context.Context, courseID string, index *vectorindex.Index) error {
	snap, err := index.Snapshot()
	if err != nil {
		return err
	}

	metadata, err := utils.CompressData(snap.Docstore, utils.CompressionGzip)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, "compress chunk metadata", err)
	}
	mapping, err := utils.CompressData(snap.Mapping, utils.CompressionGzip)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, "compress slot mapping", err)
	}

	artifacts := []struct {
		name string
		data []byte
	}{
		{indexArtifact, snap.Index},
		{metadataArtifact, metadata},
		{mappingArtifact, mapping},
	}

	for _, a := range artifacts {
		if err := s.store.Put(ctx, artifactKey(courseID, a.name), a.data); err != nil {
			return apperr.Wrap(apperr.KindPersistence,
				fmt.Sprintf("write snapshot artifact %s for course %s", a.name, courseID), err)
		}
	}

	s.Invalidate(courseID)
	logger.Info("saved index snapshot", "course_id", courseID, "chunks", index.Len())
	return nil
}

// Load reconstructs the course's index from its snapshot artifacts. A
// course with no snapshot yet returns a not-found error so the caller
// can fall back to a fresh empty index. Results are cached until the
// configured TTL elapses or a save invalidates them.
func (s *VectorstoreService) Load(ctx context.Context, courseID string) (*vectorindex.Index, error) {
	s.mu.Lock()
	if entry, ok := s.cache[courseID]; ok && time.Since(entry.loadedAt) < s.ttl {
		index := entry.index
		s.mu.Unlock()
		return index, nil
	}
	s.mu.Unlock()

	indexBytes, err := s.store.Get(ctx, artifactKey(courseID, indexArtifact))
	if err != nil {
		return nil, s.classifyLoadError(courseID, indexArtifact, err)
	}
	metadataBytes, err := s.store.Get(ctx, artifactKey(courseID, metadataArtifact))
	if err != nil {
		return nil, s.classifyLoadError(courseID, metadataArtifact, err)
	}
	mappingBytes, err := s.store.Get(ctx, artifactKey(courseID, mappingArtifact))
	if err != nil {
		return nil, s.classifyLoadError(courseID, mappingArtifact, err)
	}

	metadata, err := utils.DecompressData(metadataBytes, utils.CompressionGzip)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "decompress chunk metadata", err)
	}
	mapping, err := utils.DecompressData(mappingBytes, utils.CompressionGzip)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "decompress slot mapping", err)
	}

	index, err := vectorindex.FromSnapshot(&vectorindex.Snapshot{
		Index:    indexBytes,
		Docstore: metadata,
		Mapping:  mapping,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[courseID] = &cacheEntry{index: index, loadedAt: time.Now()}
	s.mu.Unlock()

	return index, nil
}

// classifyLoadError distinguishes a missing snapshot from an I/O failure.
// Absence of any one artifact counts as no snapshot only when the first
// artifact is the missing one; a missing later artifact after a present
// index file means a torn write.
func (s *VectorstoreService) classifyLoadError(courseID, artifact string, err error) error {
	if errors.Is(err, blob.ErrNotFound) {
		if artifact == indexArtifact {
			return apperr.NotFoundf("no index snapshot for course %s", courseID)
		}
		return apperr.Wrap(apperr.KindPersistence,
			fmt.Sprintf("snapshot for course %s is missing artifact %s", courseID, artifact), err)
	}
	return apperr.Wrap(apperr.KindPersistence,
		fmt.Sprintf("read snapshot artifact %s for course %s", artifact, courseID), err)
}

// Delete removes all snapshot artifacts for a course and drops its cache
// entry. Missing artifacts are ignored.
func (s *VectorstoreService) Delete(ctx context.Context, courseID string) error {
	for _, name := range []string{indexArtifact, metadataArtifact, mappingArtifact} {
		if err := s.store.Delete(ctx, artifactKey(courseID, name)); err != nil && !errors.Is(err, blob.ErrNotFound) {
			return apperr.Wrap(apperr.KindPersistence,
				fmt.Sprintf("delete snapshot artifact %s for course %s", name, courseID), err)
		}
	}
	s.Invalidate(courseID)
	return nil
}

// Invalidate drops the cached index for a course.
func (s *VectorstoreService) Invalidate(courseID string) {
	s.mu.Lock()
	delete(s.cache, courseID)
	s.mu.Unlock()
}

// SweepExpired removes cache entries past their TTL. Run periodically
// so long-idle courses do not pin memory.
func (s *VectorstoreService) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for courseID, entry := range s.cache {
		if time.Since(entry.loadedAt) >= s.ttl {
			delete(s.cache, courseID)
			removed++
		}
	}
	return removed
}
