package service

import (
	"context"
	"sync"
	"time"

	"relayhub/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Dispatcher periodically drains the intake buffer and hands each sender's
// pending items to the relay engine as an independent job. The tick itself
// performs no recipient I/O, so one sender's slow fan-out never delays the
// next drain for everyone else.
type Dispatcher struct {
	buffer   *IntakeBuffer
	relayer  PendingRelayer
	interval time.Duration
	logger   *logrus.Logger
	stopCh   chan struct{}
	jobs     sync.WaitGroup
}

func NewDispatcher(buffer *IntakeBuffer, relayer PendingRelayer, interval time.Duration, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		buffer:   buffer,
		relayer:  relayer,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.WithField("interval", d.interval).Info("Starting relay dispatcher")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher context cancelled, stopping")
			return
		case <-d.stopCh:
			d.logger.Info("Dispatcher stop signal received, stopping")
			return
		case <-ticker.C:
			d.dispatch(ctx)
		}
	}
}

func (d *Dispatcher) Stop() {
	close(d.stopCh)
}

// Wait blocks until all in-flight fan-out jobs have finished.
func (d *Dispatcher) Wait() {
	d.jobs.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context) {
	drained := d.buffer.DrainAll()
	if len(drained) == 0 {
		return
	}

	for senderID, items := range drained {
		if len(items) == 0 {
			continue
		}
		jobID := uuid.NewString()
		d.logger.WithFields(logrus.Fields{
			"jobId":    jobID,
			"senderId": senderID,
			"items":    len(items),
		}).Debug("Scheduling fan-out job")

		d.jobs.Add(1)
		go func(jobID string, senderID int64, items []models.MediaItem) {
			defer d.jobs.Done()
			d.relayer.RelayPending(ctx, jobID, senderID, items)
		}(jobID, senderID, items)
	}
}
