package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/usecase"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/util"
)

const deliverTimeout = 30 * time.Second

// OutboxWorker polls the email outbox and delivers due rows on a worker pool.
type OutboxWorker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// RunOnce delivers one batch and returns how many rows were attempted.
	RunOnce(ctx context.Context) int
}

type outboxWorker struct {
	outbox   usecase.OutboxUsecase
	pool     *workerpool.WorkerPool
	metrics  *prometheus.HistogramVec
	interval time.Duration
	batch    int

	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
}

func NewOutboxWorker(cfg *config.Config, outbox usecase.OutboxUsecase) (OutboxWorker, error) {
	metrics, err := util.GetHistogramVec("outbox_deliveries", "status")
	if err != nil {
		return nil, fmt.Errorf("get histogram vec: %w", err)
	}
	workers := max(cfg.Outbox.Workers, 1)
	interval := cfg.Outbox.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &outboxWorker{
		outbox:   outbox,
		pool:     workerpool.New(workers),
		metrics:  metrics,
		interval: interval,
		batch:    max(cfg.Outbox.BatchSize, 1),
		stopped:  make(chan struct{}),
	}, nil
}

// StartOutboxWorker ties the worker to the application lifecycle.
func StartOutboxWorker(lc fx.Lifecycle, w OutboxWorker) {
	lc.Append(fx.Hook{
		OnStart: w.Start,
		OnStop:  w.Stop,
	})
}

func (w *outboxWorker) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.cancel = cancel
	log.Infow(ctx, "starting outbox worker", "interval", w.interval, "batch", w.batch)

	go func() {
		defer close(w.stopped)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				w.RunOnce(loopCtx)
			}
		}
	}()
	return nil
}

func (w *outboxWorker) Stop(ctx context.Context) error {
	w.once.Do(func() {
		log.Infow(ctx, "stopping outbox worker")
		if w.cancel != nil {
			w.cancel()
			select {
			case <-w.stopped:
			case <-ctx.Done():
			}
		}
		w.pool.StopWait()
	})
	return nil
}

func (w *outboxWorker) RunOnce(ctx context.Context) int {
	due, err := w.outbox.Claim(ctx, w.batch)
	if err != nil {
		log.Errorw(ctx, "claim due emails", "error", err)
	}
	if len(due) == 0 {
		return 0
	}

	// the whole batch finishes before the next poll; claims keep other instances off these rows
	var wg sync.WaitGroup
	for _, mail := range due {
		wg.Add(1)
		w.pool.Submit(func() {
			defer wg.Done()
			w.deliver(ctx, mail)
		})
	}
	wg.Wait()
	return len(due)
}

func (w *outboxWorker) deliver(parent context.Context, mail *models.EmailOutbox) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, deliverTimeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				stack := make([]byte, 4096)
				length := runtime.Stack(stack, false)
				err = fmt.Errorf("PANIC RECOVER: %+v / %s", r, string(stack[:length]))
			}
		}()
		return w.outbox.Deliver(ctx, mail)
	}()

	code := util.ErrorCode(err)
	w.metrics.WithLabelValues(code.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Warnw(ctx, "deliver email", "id", mail.ID, "template", mail.Template, "attempts", mail.Attempts, "error", err)
		return
	}
	log.Infow(ctx, "email delivered", "id", mail.ID, "template", mail.Template)
}
