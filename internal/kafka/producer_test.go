package kafka

import (
	"context"
	"testing"
	"time"
)

func waitClosed(t *testing.T, p *Producer) {
	t.Helper()
	done := make(chan struct{})
	go func() { p.WaitClosed(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("flush goroutine did not exit")
	}
}

func TestProducerCancelThenClose(t *testing.T) {
	p := NewProducer([]string{"localhost:0"}, "orders", 8)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	// the shutdown order the consumer binary uses
	cancel()
	time.Sleep(20 * time.Millisecond)
	p.Close()
	waitClosed(t, p)
}

func TestProducerCloseThenCancel(t *testing.T) {
	p := NewProducer([]string{"localhost:0"}, "orders", 8)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	// the shutdown order the API binary uses; the flush loop may observe
	// the closed inbox and the cancelled context in either order
	p.Close()
	cancel()
	waitClosed(t, p)
}

func TestProducerDoubleClose(t *testing.T) {
	p := NewProducer([]string{"localhost:0"}, "orders", 8)
	p.Start(context.Background())
	p.Close()
	p.Close()
	waitClosed(t, p)
}
