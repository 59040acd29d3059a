package models

// Chunk is the atomic unit of retrieval: a bounded slice of extracted page
// text plus the position metadata needed for provenance. Identity is the
// (Title, Page, ChunkIndex) triple; ChunkID is the docstore key.
type Chunk struct {
	ChunkID    string `bson:"chunk_id" json:"chunk_id"`
	Title      string `bson:"title" json:"title"`
	Page       int    `bson:"page" json:"page"`
	ChunkIndex int    `bson:"chunk_index" json:"chunk_index"`
	Content    string `bson:"content" json:"content"`
}

// RetrievedChunk is a chunk returned by a similarity search, annotated with
// its distance to the query vector (smaller = more relevant).
type RetrievedChunk struct {
	Content string  `json:"content"`
	Title   string  `json:"title"`
	Page    int     `json:"page"`
	Score   float32 `json:"score"`
}
