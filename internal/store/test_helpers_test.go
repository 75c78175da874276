package store

import (
	"context"
	"testing"
)

// createTestStore creates an in-memory store with one ordered table
// ("posts") and one unordered table ("users").
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open()
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	if err := s.CreateTable(ctx, "posts", true); err != nil {
		t.Fatalf("CreateTable(posts) failed: %v", err)
	}
	if err := s.CreateTable(ctx, "users", false); err != nil {
		t.Fatalf("CreateTable(users) failed: %v", err)
	}
	return s
}

func post(id string, key int64, payload string) Row {
	return Row{ID: id, OrderingKey: Key(key), Payload: []byte(payload)}
}

func user(id, payload string) Row {
	return Row{ID: id, Payload: []byte(payload)}
}

// rowIDs returns ids of rows in order.
func rowIDs(rows []Row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}
