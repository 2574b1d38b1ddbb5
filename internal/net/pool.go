package net

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

type workerFunc func(t *tomb.Tomb, task any) error

// workerPool fans session work out over a fixed set of tomb-supervised
// workers. A worker error is fatal to the whole server.
type workerPool struct {
	n     int
	tasks chan any
}

func newWorkerPool(n int) *workerPool {
	return &workerPool{
		n:     n,
		tasks: make(chan any, taskChanSize),
	}
}

func (p *workerPool) start(t *tomb.Tomb, work workerFunc) {
	for i := 0; i < p.n; i++ {
		id := i
		t.Go(func() error {
			return p.worker(t, id, work)
		})
	}
}

func (p *workerPool) worker(t *tomb.Tomb, id int, work workerFunc) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			if err := work(t, task); err != nil {
				log.Error().Err(err).Int("id", id).Msg("worker exiting")
				return err
			}
		}
	}
}

func (p *workerPool) addTask(task any) {
	p.tasks <- task
}
