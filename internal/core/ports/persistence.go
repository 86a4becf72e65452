package ports

import "context"

// Namespaces used by the engine when talking to a PersistenceAdapter.
const (
	NamespaceQueue = "queue"
	NamespaceCache = "cache"
)

// PersistenceAdapter is durable whole-blob storage. The engine keeps authoritative state in
// memory and rewrites the complete blob of a namespace on every mutation, so implementations
// must tolerate frequent Save calls and must never leave a partially written blob behind.
type PersistenceAdapter interface {
	// Load returns the last saved blob. ok=false if nothing was saved yet.
	Load(ctx context.Context, namespace string) (data []byte, ok bool, err error)
	// Save replaces the blob for namespace.
	Save(ctx context.Context, namespace string, data []byte) error
}
