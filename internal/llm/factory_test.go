package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/haider984/codsy/internal/models"
)

type nullClient struct{ id string }

func (c *nullClient) Classify(ctx context.Context, content string) (models.MessageType, error) {
	return models.TypeGreeting, nil
}
func (c *nullClient) ExtractTasks(ctx context.Context, content string) ([]TaskSpec, error) {
	return nil, nil
}
func (c *nullClient) VerifyResult(ctx context.Context, platform models.Platform, result string) (models.TaskStatus, error) {
	return models.TaskPending, nil
}
func (c *nullClient) Summarize(ctx context.Context, mid string, results []TaskResult) (string, error) {
	return "", nil
}
func (c *nullClient) ChatReply(ctx context.Context, content string, history []models.Message) (string, error) {
	return "", nil
}

func TestFactoryCachesPerIdentity(t *testing.T) {
	builds := 0
	f := NewFactory(func(ctx context.Context, identity string) (Client, error) {
		builds++
		return &nullClient{id: identity}, nil
	})

	a1, err := f.Get(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	a2, err := f.Get(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if a1 != a2 {
		t.Fatal("same identity must get the cached client")
	}

	if _, err := f.Get(context.Background(), "bob"); err != nil {
		t.Fatal(err)
	}
	if builds != 2 {
		t.Fatalf("expected 2 builds, got %d", builds)
	}
}

func TestFactoryPropagatesBuildError(t *testing.T) {
	wantErr := errors.New("no api key")
	f := NewFactory(func(ctx context.Context, identity string) (Client, error) {
		return nil, wantErr
	})

	if _, err := f.Get(context.Background(), "alice"); !errors.Is(err, wantErr) {
		t.Fatalf("expected build error, got %v", err)
	}
}

func TestFactoryConcurrentGet(t *testing.T) {
	f := NewFactory(func(ctx context.Context, identity string) (Client, error) {
		return &nullClient{id: identity}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Get(context.Background(), "shared"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}

func TestStaticFactory(t *testing.T) {
	shared := &nullClient{}
	f := NewStaticFactory(shared)

	for _, id := range []string{"", "alice", "bob"} {
		got, err := f.Get(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if got != Client(shared) {
			t.Fatalf("identity %q did not get the shared client", id)
		}
	}
}
