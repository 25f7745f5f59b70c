// Package eventstore keeps the append-only history of focus sessions and the
// read model served by the history endpoint.
package eventstore

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"
)

const (
	sessionStatusActive = "active"
	sessionStatusEnded  = "ended"
)

// SessionSummary is the read model of one focus session.
type SessionSummary struct {
	SessionID      string         `json:"session_id"`
	Status         string         `json:"status"` // "active" or "ended"
	Mode           string         `json:"mode,omitempty"`
	Signal         string         `json:"signal,omitempty"`
	StartReason    string         `json:"start_reason"`
	EndReason      string         `json:"end_reason,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	EndedAt        *time.Time     `json:"ended_at,omitempty"`
	SessionMinutes int            `json:"session_minutes"`
	BlockedCount   int            `json:"blocked_count"`
	BlockedSites   map[string]int `json:"blocked_sites,omitempty"`
}

func (s *SessionSummary) clone() *SessionSummary {
	cp := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		cp.EndedAt = &t
	}
	cp.BlockedSites = maps.Clone(s.BlockedSites)
	return &cp
}

// SessionHistoryProjection maintains an in-memory view of recent sessions,
// reconstructed from the events in the store.
type SessionHistoryProjection struct {
	mu       sync.RWMutex
	store    Store
	sessions map[string]*SessionSummary
	maxSize  int
	lastSync time.Time
}

// NewSessionHistoryProjection creates a projection backed by store.
func NewSessionHistoryProjection(store Store, maxHistorySize int) *SessionHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 50
	}
	return &SessionHistoryProjection{
		store:    store,
		sessions: make(map[string]*SessionSummary),
		maxSize:  maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all stored events.
func (p *SessionHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.sessions = make(map[string]*SessionSummary)
	for _, event := range events {
		p.applyEventLocked(event)
	}
	p.pruneLocked()
	p.lastSync = time.Now()
	return nil
}

// Apply processes a single event as it is recorded.
func (p *SessionHistoryProjection) Apply(event *Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
	p.pruneLocked()
}

func (p *SessionHistoryProjection) applyEventLocked(event *Event) {
	if event.SessionID == "" {
		return
	}
	summary, exists := p.sessions[event.SessionID]
	if !exists {
		summary = &SessionSummary{SessionID: event.SessionID, Status: sessionStatusActive, StartedAt: event.At}
		p.sessions[event.SessionID] = summary
	}

	// A payload that fails to decode still moves the session through its
	// states; only the details are lost.
	switch event.Type {
	case TypeFocusActivated:
		var meta FocusActivatedMeta
		if event.Decode(&meta) == nil {
			summary.StartReason, summary.Mode, summary.Signal = meta.Reason, meta.Mode, meta.Signal
		}
		summary.StartedAt = event.At
		summary.Status = sessionStatusActive

	case TypeFocusDeactivated:
		var data FocusDeactivatedData
		if event.Decode(&data) == nil {
			summary.EndReason, summary.SessionMinutes = data.Reason, data.SessionMinutes
		}
		at := event.At
		summary.EndedAt = &at
		summary.Status = sessionStatusEnded

	case TypeSiteBlocked:
		summary.BlockedCount++
		var data SiteBlockedData
		if event.Decode(&data) == nil && data.Site != "" {
			if summary.BlockedSites == nil {
				summary.BlockedSites = make(map[string]int)
			}
			summary.BlockedSites[data.Site]++
		}
	}
}

// pruneLocked keeps the newest maxSize sessions. Caller must hold p.mu.
func (p *SessionHistoryProjection) pruneLocked() {
	if len(p.sessions) <= p.maxSize {
		return
	}
	ordered := p.orderedLocked()
	for _, s := range ordered[p.maxSize:] {
		delete(p.sessions, s.SessionID)
	}
}

// orderedLocked returns sessions newest first.
func (p *SessionHistoryProjection) orderedLocked() []*SessionSummary {
	out := make([]*SessionSummary, 0, len(p.sessions))
	for _, s := range p.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].SessionID > out[j].SessionID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// GetHistory returns up to limit sessions, newest first. limit <= 0 returns all kept sessions.
func (p *SessionHistoryProjection) GetHistory(limit int) []*SessionSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ordered := p.orderedLocked()
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	result := make([]*SessionSummary, len(ordered))
	for i, s := range ordered {
		result[i] = s.clone()
	}
	return result
}

// GetSession returns the summary for one session.
func (p *SessionHistoryProjection) GetSession(sessionID string) (*SessionSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary, exists := p.sessions[sessionID]
	if !exists {
		return nil, false
	}
	return summary.clone(), true
}

// GetActiveSession returns the running session if any.
func (p *SessionHistoryProjection) GetActiveSession() *SessionSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, s := range p.orderedLocked() {
		if s.Status == sessionStatusActive {
			return s.clone()
		}
	}
	return nil
}

// LastSyncTime returns when the projection was last rebuilt.
func (p *SessionHistoryProjection) LastSyncTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}
