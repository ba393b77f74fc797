// Package store provides the equation registry: an id-keyed collection of
// parsed equations, in memory or backed by SQLite.
package store

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/lemonberrylabs/equations/pkg/expr"
	"github.com/lemonberrylabs/equations/pkg/types"
)

// Equation is a stored equation. Tree is built once by expr.Parse and is
// never modified afterwards.
type Equation struct {
	ID         string    `json:"equationId"`
	Text       string    `json:"equation"`
	Tree       expr.Node `json:"-"`
	CreateTime time.Time `json:"createTime"`
}

// Store is the equation registry used by the API servers. Implementations
// are safe for concurrent use and allocate ids atomically.
type Store interface {
	// Create stores an already parsed equation and returns it with its new id.
	Create(text string, tree expr.Node) (*Equation, error)
	// Get returns the equation with the given id or a NotFound error.
	Get(id string) (*Equation, error)
	// List returns all equations ordered by id.
	List() ([]*Equation, error)
	// Delete removes an equation or returns a NotFound error.
	Delete(id string) error
	Close() error
}

// Memory is a thread-safe in-memory Store. Ids are decimal strings starting
// at "1".
type Memory struct {
	mu        sync.RWMutex
	equations map[string]*Equation

	// Counter for generating unique IDs
	idCounter int64
}

// New creates a new empty in-memory store.
func New() *Memory {
	return &Memory{
		equations: make(map[string]*Equation),
	}
}

// Create implements Store.
func (s *Memory) Create(text string, tree expr.Node) (*Equation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.idCounter++
	eq := &Equation{
		ID:         strconv.FormatInt(s.idCounter, 10),
		Text:       text,
		Tree:       tree,
		CreateTime: time.Now(),
	}
	s.equations[eq.ID] = eq
	return eq, nil
}

// Get implements Store.
func (s *Memory) Get(id string) (*Equation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	eq, ok := s.equations[id]
	if !ok {
		return nil, types.NewNotFoundError(id)
	}
	return eq, nil
}

// List implements Store.
func (s *Memory) List() ([]*Equation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Equation, 0, len(s.equations))
	for _, eq := range s.equations {
		result = append(result, eq)
	}
	sortByID(result)
	return result, nil
}

// Delete implements Store.
func (s *Memory) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.equations[id]; !ok {
		return types.NewNotFoundError(id)
	}
	delete(s.equations, id)
	return nil
}

// Close implements Store. It is a no-op for the in-memory store.
func (s *Memory) Close() error { return nil }

// sortByID orders numerically when both ids are numbers, lexically otherwise.
func sortByID(eqs []*Equation) {
	sort.Slice(eqs, func(i, j int) bool {
		a, errA := strconv.ParseInt(eqs[i].ID, 10, 64)
		b, errB := strconv.ParseInt(eqs[j].ID, 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return eqs[i].ID < eqs[j].ID
	})
}
