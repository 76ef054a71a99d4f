package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestMockServiceEchoes(t *testing.T) {
	m := NewMockService()

	gen, err := m.Generate(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.Text != "You said: hello" {
		t.Errorf("unexpected text %q", gen.Text)
	}
	if gen.Model != "mock" {
		t.Errorf("unexpected model %q", gen.Model)
	}
	if calls := m.Calls(); len(calls) != 1 || calls[0][0] != "hello" {
		t.Errorf("unexpected calls %v", calls)
	}
}

func TestMockServiceRespondOverride(t *testing.T) {
	quota := &UpstreamError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota exceeded"}
	m := NewMockService().Respond(func([]string) (string, error) {
		return "", quota
	})

	_, err := m.Generate(context.Background(), []string{"hi"})
	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.Message != "quota exceeded" {
		t.Fatalf("expected quota upstream error, got %v", err)
	}
	if !errors.Is(err, ErrUpstream) {
		t.Fatal("expected error to match ErrUpstream")
	}
}

func TestMockServiceRejectsEmptyContents(t *testing.T) {
	if _, err := NewMockService().Generate(context.Background(), nil); !errors.Is(err, ErrNoContents) {
		t.Fatalf("expected ErrNoContents, got %v", err)
	}
}

func TestMockServiceHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMockService()
	if _, err := m.Generate(ctx, []string{"hi"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(m.Calls()) != 0 {
		t.Fatal("expected canceled call not to be recorded")
	}
}

func TestMockServiceConcurrentCalls(t *testing.T) {
	m := NewMockService()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := fmt.Sprintf("msg-%d", i)
			gen, err := m.Generate(context.Background(), []string{msg})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if gen.Text != "You said: "+msg {
				t.Errorf("cross-talk: sent %q, got %q", msg, gen.Text)
			}
		}()
	}
	wg.Wait()

	if n := len(m.Calls()); n != 20 {
		t.Fatalf("expected 20 calls, got %d", n)
	}
}

func TestUnavailable(t *testing.T) {
	svc := Unavailable(ErrMissingAPIKey)
	if _, err := svc.Generate(context.Background(), []string{"hi"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := Unavailable(nil).Generate(context.Background(), []string{"hi"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected nil error to default to ErrMissingAPIKey, got %v", err)
	}
}

func TestUpstreamErrorFormatting(t *testing.T) {
	err := &UpstreamError{Code: 400, Status: "INVALID_ARGUMENT", Message: "API key not valid"}
	want := "gemini upstream error (code=400 status=INVALID_ARGUMENT): API key not valid"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
	var nilErr *UpstreamError
	if nilErr.Error() != ErrUpstream.Error() {
		t.Fatalf("unexpected nil formatting %q", nilErr.Error())
	}
}
