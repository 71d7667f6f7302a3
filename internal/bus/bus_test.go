package bus

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBroadcastDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcast(4)
	ch1, unsub1 := b.Subscribe()
	ch2, unsub2 := b.Subscribe()
	defer unsub1()
	defer unsub2()

	b.Publish("hello")

	select {
	case v := <-ch1:
		if v != "hello" {
			t.Errorf("ch1 got %v, want hello", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting on ch1")
	}
	select {
	case v := <-ch2:
		if v != "hello" {
			t.Errorf("ch2 got %v, want hello", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting on ch2")
	}
}

func TestBroadcastDropsOldestWhenSubscriberIsSlow(t *testing.T) {
	b := NewBroadcast(2)
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(1)
	b.Publish(2)
	b.Publish(3) // should not block even though buffer depth is 2

	first := <-ch
	if first != 2 && first != 3 {
		t.Errorf("first received = %v, want the oldest surviving value (2 or 3)", first)
	}
}

func TestBroadcastUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcast(4)
	ch, unsub := b.Subscribe()
	unsub()

	_, ok := <-ch
	if ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
}

func TestCommandFIFOOrdering(t *testing.T) {
	c := NewCommand(4)
	ctx := context.Background()

	c.Send(ctx, 1)
	c.Send(ctx, 2)
	c.Send(ctx, 3)

	for _, want := range []int{1, 2, 3} {
		got, err := c.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if got != want {
			t.Errorf("Recv = %v, want %v", got, want)
		}
	}
}

func TestCommandRecvRespectsCancellation(t *testing.T) {
	c := NewCommand(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Recv(ctx); err == nil {
		t.Fatal("expected Recv to return an error for a cancelled context")
	}
}

func TestSchedulerPropagatesFirstError(t *testing.T) {
	s := NewScheduler(context.Background())
	wantErr := errors.New("boom")

	s.Go(func(ctx context.Context) error {
		return wantErr
	})
	s.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if err := s.Wait(); err != wantErr {
		t.Errorf("Wait() = %v, want %v", err, wantErr)
	}
}

func TestSchedulerShutdownCancelsContext(t *testing.T) {
	s := NewScheduler(context.Background())
	done := make(chan struct{})

	s.Go(func(ctx context.Context) error {
		<-ctx.Done()
		close(done)
		return nil
	})

	s.Shutdown()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected task context to be cancelled by Shutdown")
	}
	s.Wait()
}
