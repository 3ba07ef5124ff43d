package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/hupe1980/assetflow/core"
)

// InMemoryMailbox is a naive process‑local MessagingService. It offers:
//  1. Append‑only message storage (Add / LoadFile)
//  2. Filtered search with case-insensitive substring matching
//
// Concurrency: protected by RWMutex. Messages are returned in insertion
// order. Suitable for tests, demos and offline runs; swap for a real mail
// provider client in production.
type InMemoryMailbox struct {
	mu       sync.RWMutex
	messages []core.Email
	index    map[string]int // message id -> position in messages
}

// NewInMemoryMailbox creates a mailbox seeded with emails.
func NewInMemoryMailbox(emails ...core.Email) *InMemoryMailbox {
	m := &InMemoryMailbox{index: make(map[string]int)}
	m.Add(emails...)
	return m
}

// Add appends emails. Messages without an id receive a generated one; a
// message whose id already exists replaces the stored copy.
func (m *InMemoryMailbox) Add(emails ...core.Email) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range emails {
		if e.ID == "" {
			e.ID = fmt.Sprintf("msg_%d", len(m.messages))
		}
		e.Labels = append([]string(nil), e.Labels...)
		if pos, ok := m.index[e.ID]; ok {
			m.messages[pos] = e
			continue
		}
		m.index[e.ID] = len(m.messages)
		m.messages = append(m.messages, e)
	}
}

// LoadFile appends the JSON array of emails stored at path.
func (m *InMemoryMailbox) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read mailbox file: %w", err)
	}
	var emails []core.Email
	if err := json.Unmarshal(data, &emails); err != nil {
		return fmt.Errorf("decode mailbox file: %w", err)
	}
	m.Add(emails...)
	return nil
}

// Len returns the number of stored messages.
func (m *InMemoryMailbox) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// FetchMessages returns the messages matching filter up to filter.MaxResults
// (unbounded when zero).
func (m *InMemoryMailbox) FetchMessages(ctx context.Context, filter core.MessageFilter) ([]core.Email, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := make([]core.Email, 0)
	for _, e := range m.messages {
		if filter.MaxResults > 0 && len(results) >= filter.MaxResults {
			break
		}
		if Match(e, filter) {
			results = append(results, cloneEmail(e))
		}
	}
	return results, nil
}

// FetchMessage returns the message with id or a NotFound error.
func (m *InMemoryMailbox) FetchMessage(ctx context.Context, id string) (core.Email, error) {
	if err := ctx.Err(); err != nil {
		return core.Email{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.index[id]
	if !ok {
		return core.Email{}, core.NewNotFound("message", id)
	}
	return cloneEmail(m.messages[pos]), nil
}

// Match reports whether e satisfies every non-empty field of filter.
func Match(e core.Email, filter core.MessageFilter) bool {
	if !contains(e.From, filter.From) || !contains(e.To, filter.To) || !contains(e.Subject, filter.Subject) {
		return false
	}
	if filter.Label != "" && !hasLabel(e.Labels, filter.Label) {
		return false
	}
	if filter.Query == "" {
		return true
	}
	for _, field := range []string{e.Subject, e.From, e.To, e.Snippet, e.Body.Plain, e.Body.HTML} {
		if contains(field, filter.Query) {
			return true
		}
	}
	return false
}

func contains(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, want) {
			return true
		}
	}
	return false
}

func cloneEmail(e core.Email) core.Email {
	e.Labels = append([]string(nil), e.Labels...)
	return e
}
