package kafka

import (
	"context"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when the message was fully processed and the
// offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
	log     *slog.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{r: r, workers: workers, log: log}
}

func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	wg := startWorkers(ctx, c.workers, jobs, h, c.r.CommitMessages, c.log)

	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			close(jobs)
			wg.Wait()
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil
		}
	}
}

// startWorkers fans jobs out to n goroutines. Each worker logs its own
// failures, so a stretch of failing messages never blocks the dispatch loop.
// The offset of a failed message stays uncommitted.
func startWorkers(ctx context.Context, n int, jobs <-chan kafka.Message, h Handler,
	commit func(context.Context, ...kafka.Message) error, log *slog.Logger) *sync.WaitGroup {

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				if err := h(ctx, m); err != nil {
					log.Error("handler failed", "partition", m.Partition, "offset", m.Offset, "err", err)
					continue
				}
				if err := commit(ctx, m); err != nil {
					log.Error("commit failed", "partition", m.Partition, "offset", m.Offset, "err", err)
				}
			}
		}()
	}
	return &wg
}
