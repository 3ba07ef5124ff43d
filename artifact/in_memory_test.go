package artifact

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/assetflow/core"
	"github.com/hupe1980/assetflow/internal/testutil"
)

// Interface compliance (compile-time assertions)
var _ core.AssetRepository = (*InMemoryStore)(nil)

func TestInMemoryStore_Contract(t *testing.T) {
	testutil.RepositoryContract(t, func(t *testing.T) core.AssetRepository {
		return NewInMemoryStore()
	})
}

func TestInMemoryStore_DownloadIsolation(t *testing.T) {
	svc := NewInMemoryStore()
	data := []byte("hello")
	a, err := svc.Upload(context.Background(), core.FileUpload{FileName: "hello.txt", Data: data})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	// mutate original slice
	data[0] = 'H'
	out, err := svc.Download(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(out) != "hello" { // should not reflect mutation
		t.Fatalf("expected 'hello', got %q", string(out))
	}
	// mutate returned slice
	out[0] = 'x'
	out2, _ := svc.Download(context.Background(), a.ID)
	if string(out2) != "hello" { // original stored should be unchanged
		t.Fatalf("expected isolation, got %q", string(out2))
	}
}

func TestInMemoryStore_ErrorsMatchCore(t *testing.T) {
	svc := NewInMemoryStore()
	_, err := svc.Download(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	a, err := svc.Create(context.Background(), core.AssetInput{Name: "n", DataType: core.DataTypeText, Content: core.Text("x")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Download(context.Background(), a.ID); !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
}

func TestInMemoryStore_Concurrency(t *testing.T) {
	svc := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := core.AssetInput{Name: fmt.Sprintf("a%d", i%10), DataType: core.DataTypeText, Content: core.Text("data")}
			if _, err := svc.Create(context.Background(), in); err != nil {
				t.Errorf("create err: %v", err)
			}
			_, _ = svc.List(context.Background(), "")
		}(i)
	}
	wg.Wait()
	all, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 100 {
		t.Fatalf("expected 100 assets, got %d", len(all))
	}
}
