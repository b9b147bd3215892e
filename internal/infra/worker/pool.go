// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// Task is a unit of work run by the pool.
type Task func(ctx context.Context) error

var (
	ErrNilTask    = errors.New("nil task")
	ErrPoolClosed = errors.New("worker pool stopped")
)

// KeyedPool runs tasks on a fixed set of workers. Tasks that share a key always land
// on the same worker, so they run one at a time and in submission order.
// Tasks with different keys may run in parallel.
type KeyedPool struct {
	wg     sync.WaitGroup
	queues []chan Task
	quit   chan struct{}
	once   sync.Once
	n      int
	log    *zerolog.Logger
}

func NewKeyedPool(workers, queueSize int, logger *zerolog.Logger) *KeyedPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "worker_pool").Logger()
	p := &KeyedPool{
		queues: make([]chan Task, workers),
		quit:   make(chan struct{}),
		n:      workers,
		log:    &l,
	}
	for i := range p.queues {
		p.queues[i] = make(chan Task, queueSize)
	}
	return p
}

// Workers reports the number of workers.
func (p *KeyedPool) Workers() int { return p.n }

func (p *KeyedPool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.queues[id]:
					p.run(ctx, id, task)
				}
			}
		}(i)
	}
}

func (p *KeyedPool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("worker", id).Str("panic", fmt.Sprint(r)).Msg("task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		p.log.Warn().Int("worker", id).Err(err).Msg("task error")
	}
}

// Stop signals workers to exit and waits for them. Queued tasks that have not started are discarded.
func (p *KeyedPool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

// Submit enqueues task on the worker that owns key. It blocks while that worker's
// queue is full, until ctx is done or the pool is stopped.
func (p *KeyedPool) Submit(ctx context.Context, key int64, task Task) error {
	if task == nil {
		return ErrNilTask
	}
	q := p.queues[p.slot(key)]
	select {
	case <-p.quit:
		return ErrPoolClosed
	default:
	}
	select {
	case q <- task:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *KeyedPool) slot(key int64) int {
	s := key % int64(p.n)
	if s < 0 {
		s = -s
	}
	return int(s)
}
