package domain

// DefaultKeyPrefix namespaces every key the service writes to the store.
const DefaultKeyPrefix = "semsync:"

// VectorConfig holds vectorization settings shared by the index and the embedder.
type VectorConfig struct {
	Model      string
	Dimensions int
}

// DefaultVectorConfig returns the defaults for a 512-dimensional sentence embedding model.
// Collections are always indexed with cosine distance over HNSW.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:      "BAAI/bge-small-zh-v1.5",
		Dimensions: 512,
	}
}
