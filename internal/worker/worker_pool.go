// Package worker provides a bounded task pool used by the reminder dispatcher
// to fan out notification deliveries, so one slow delivery cannot stall the
// rest of the batch.
package worker

import (
	"sync"

	"github.com/rs/zerolog"
)

type Task func()

type Pool struct {
	tasks      chan Task
	wg         sync.WaitGroup
	pending    sync.WaitGroup
	maxWorkers int
	logger     zerolog.Logger
}

func NewPool(maxWorkers int, logger zerolog.Logger) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Pool{
		tasks:      make(chan Task, maxWorkers*10),
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.logger.Debug().Int("max_workers", p.maxWorkers).Msg("Worker pool started")
}

// Submit blocks when the queue is full; deliveries are cheap enough that
// backpressure beats dropping tasks.
func (p *Pool) Submit(task Task) {
	p.pending.Add(1)
	p.tasks <- task
}

// Wait blocks until every submitted task has finished. The pool stays usable
// afterwards.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Stop drains the queue and terminates the workers.
func (p *Pool) Stop() {
	close(p.tasks)
	p.wg.Wait()

	p.logger.Debug().Msg("Worker pool stopped")
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.tasks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error().
						Int("worker_id", id).
						Interface("panic", r).
						Msg("Worker recovered from panic")
				}
				p.pending.Done()
			}()

			task()
		}()
	}
}
