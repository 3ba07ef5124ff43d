package mailbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hupe1980/assetflow/core"
)

// Interface compliance (compile-time assertions)
var _ core.MessagingService = (*InMemoryMailbox)(nil)

func seed() *InMemoryMailbox {
	return NewInMemoryMailbox(
		core.Email{ID: "m1", Subject: "Quarterly report", From: "boss@corp.com", To: "me@corp.com", Labels: []string{"INBOX", "IMPORTANT"}},
		core.Email{ID: "m2", Subject: "Lunch?", From: "friend@mail.com", To: "me@corp.com", Body: core.EmailBody{Plain: "pizza at noon"}, Labels: []string{"INBOX"}},
		core.Email{ID: "m3", Subject: "Invoice", From: "billing@shop.com", To: "me@corp.com", Snippet: "your report is ready"},
	)
}

func TestInMemoryMailbox_FetchMessages(t *testing.T) {
	mb := seed()
	ctx := context.Background()

	all, err := mb.FetchMessages(ctx, core.MessageFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 || all[0].ID != "m1" || all[2].ID != "m3" {
		t.Fatalf("expected insertion order, got %#v", all)
	}

	res, _ := mb.FetchMessages(ctx, core.MessageFilter{Query: "REPORT"})
	if len(res) != 2 || res[0].ID != "m1" || res[1].ID != "m3" {
		t.Fatalf("expected subject and snippet matches, got %#v", res)
	}

	res, _ = mb.FetchMessages(ctx, core.MessageFilter{Query: "pizza"})
	if len(res) != 1 || res[0].ID != "m2" {
		t.Fatalf("expected body match, got %#v", res)
	}

	res, _ = mb.FetchMessages(ctx, core.MessageFilter{Label: "important"})
	if len(res) != 1 || res[0].ID != "m1" {
		t.Fatalf("expected label match, got %#v", res)
	}

	res, _ = mb.FetchMessages(ctx, core.MessageFilter{From: "corp.com", To: "me@"})
	if len(res) != 1 || res[0].ID != "m1" {
		t.Fatalf("expected from/to match, got %#v", res)
	}

	res, _ = mb.FetchMessages(ctx, core.MessageFilter{MaxResults: 2})
	if len(res) != 2 {
		t.Fatalf("expected 2 limited results, got %d", len(res))
	}

	res, _ = mb.FetchMessages(ctx, core.MessageFilter{Query: "nothing matches"})
	if res == nil || len(res) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", res)
	}
}

func TestInMemoryMailbox_FetchMessage(t *testing.T) {
	mb := seed()
	e, err := mb.FetchMessage(context.Background(), "m2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Subject != "Lunch?" {
		t.Fatalf("unexpected message: %#v", e)
	}
	// mutation safety (returned labels are a copy)
	e.Labels[0] = "changed"
	again, _ := mb.FetchMessage(context.Background(), "m2")
	if again.Labels[0] != "INBOX" {
		t.Fatalf("expected copy isolation, got %#v", again.Labels)
	}

	if _, err := mb.FetchMessage(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInMemoryMailbox_AddAssignsAndReplaces(t *testing.T) {
	mb := NewInMemoryMailbox()
	mb.Add(core.Email{Subject: "a"}, core.Email{Subject: "b"})
	if mb.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", mb.Len())
	}
	if _, err := mb.FetchMessage(context.Background(), "msg_1"); err != nil {
		t.Fatalf("expected generated id: %v", err)
	}
	mb.Add(core.Email{ID: "msg_0", Subject: "a2"})
	if mb.Len() != 2 {
		t.Fatalf("expected replace, got %d messages", mb.Len())
	}
	e, _ := mb.FetchMessage(context.Background(), "msg_0")
	if e.Subject != "a2" {
		t.Fatalf("expected replaced subject, got %q", e.Subject)
	}
}

func TestInMemoryMailbox_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.json")
	data := `[{"id":"x1","subject":"Hello","from":"a@x.com","to":"b@x.com","date":"1700000000000","body":{"plain":"hi"}}]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	mb := NewInMemoryMailbox()
	if err := mb.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	e, err := mb.FetchMessage(context.Background(), "x1")
	if err != nil || e.Body.Plain != "hi" || e.Date != "1700000000000" {
		t.Fatalf("unexpected message %#v (%v)", e, err)
	}
	if err := mb.LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestInMemoryMailbox_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := seed().FetchMessages(ctx, core.MessageFilter{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestInMemoryMailbox_ConcurrentAccess(t *testing.T) {
	mb := NewInMemoryMailbox()
	wg := sync.WaitGroup{}
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mb.Add(core.Email{Subject: "s", From: string(rune('a' + i%5))})
			if _, err := mb.FetchMessages(context.Background(), core.MessageFilter{Query: "s"}); err != nil {
				t.Errorf("search error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if mb.Len() == 0 {
		t.Fatalf("expected messages after concurrent adds")
	}
}
