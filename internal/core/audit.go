package core

import (
	"context"
	"sync"
	"time"

	"campuslife/pkg/domain"
)

// AuditEntry records one entity mutation and who performed it.
type AuditEntry struct {
	ID         string            `json:"id"`
	Actor      string            `json:"actor"`
	Entity     domain.EntityType `json:"entity"`
	Action     domain.Action     `json:"action"`
	TargetID   string            `json:"targetId"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// AuditLogger receives one entry per successful mutation.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MemoryAuditLog collects entries in memory, oldest first.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

// Entries returns a copy of the recorded trail.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AuditEntry(nil), l.entries...)
}

var _ AuditLogger = (*MemoryAuditLog)(nil)
