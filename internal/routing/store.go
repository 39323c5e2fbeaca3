package routing

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// PostgresStore resolves routes with a single joined read.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) LookupByNumber(ctx context.Context, number string) (Route, bool, error) {
	const q = `
SELECT p.id, p.tenant_id, a.id, COALESCE(a.greeting, '')
FROM phone_numbers p
JOIN tenants t ON t.id = p.tenant_id
LEFT JOIN agents a ON a.id = p.agent_id AND a.tenant_id = p.tenant_id
WHERE p.number = $1
`
	var (
		r       Route
		agentID sql.NullString
	)
	err := s.db.QueryRowContext(ctx, q, number).Scan(&r.PhoneNumberID, &r.TenantID, &agentID, &r.Greeting)
	if errors.Is(err, sql.ErrNoRows) {
		return Route{}, false, nil
	}
	if err != nil {
		return Route{}, false, err
	}
	r.AgentID = agentID.String
	return r, true, nil
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	routes map[string]Route
	// Err, when set, is returned by LookupByNumber.
	Err error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{routes: map[string]Route{}}
}

func (s *MemoryStore) Put(number string, r Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[number] = r
}

func (s *MemoryStore) LookupByNumber(_ context.Context, number string) (Route, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return Route{}, false, s.Err
	}
	r, ok := s.routes[number]
	return r, ok, nil
}
