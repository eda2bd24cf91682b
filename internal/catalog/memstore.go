package catalog

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Lister interface.
var _ Lister = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory product catalog. It backs tests and
// the standalone CLI mode; a real deployment would wrap the POS database.
// The zero value is ready to use.
type MemStore struct {
	mu       sync.RWMutex
	order    []string
	products map[string]Product
}

// NewMemStore returns a [MemStore] seeded with the given products, keeping
// their order as the catalog order.
func NewMemStore(products ...Product) (*MemStore, error) {
	s := &MemStore{products: make(map[string]Product, len(products))}
	for _, p := range products {
		if _, err := s.Add(context.Background(), p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add inserts a product, generating an ID when absent, and returns the
// stored value.
func (s *MemStore) Add(ctx context.Context, p Product) (Product, error) {
	if p.ID == "" {
		id, err := generateID()
		if err != nil {
			return Product{}, fmt.Errorf("catalog: generate id: %w", err)
		}
		p.ID = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.products == nil {
		s.products = make(map[string]Product)
	}
	if _, exists := s.products[p.ID]; exists {
		return Product{}, ErrDuplicateID
	}

	s.products[p.ID] = p
	s.order = append(s.order, p.ID)
	return p, nil
}

// Get returns the product with the given ID.
func (s *MemStore) Get(ctx context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

// ListProducts implements [Lister]. Products are returned in insertion
// order.
func (s *MemStore) ListProducts(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.products[id])
	}
	return out, nil
}

// SetStock replaces the stock level of one product. Used by the CLI demo to
// mirror external stock mutations.
func (s *MemStore) SetStock(ctx context.Context, id string, stock float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Stock = stock
	s.products[id] = p
	return nil
}

// generateID returns a random 8-byte hex identifier.
func generateID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
