package hierarchy

import (
	"context"
	"sync"
)

// MemorySource guarda o snapshot da hierarquia em memória.
// Usado nos testes e no modo local; carregado de uma vez pelo administrador.
type MemorySource struct {
	mu    sync.RWMutex
	nodes map[string]Node
}

func NewMemorySource() *MemorySource {
	return &MemorySource{nodes: make(map[string]Node)}
}

// Put insere/substitui um nó do snapshot.
func (m *MemorySource) Put(n Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[n.ID] = n
}

func (m *MemorySource) Node(ctx context.Context, id string) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, ErrNodeNotFound
	}
	return &n, nil
}
