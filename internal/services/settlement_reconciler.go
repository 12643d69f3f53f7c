package services

import (
	"context"
	"log"
	"sync"
	"time"

	repository "time-exchange.com/time-exchange/internal/repositories"
)

// SettlementReconciler periodically resolves settlement markers that stayed
// pending past the grace period, which happens when a transfer call timed out
// or the process stopped between paying and completing the task.
type SettlementReconciler struct {
	engine      *TaskService
	settlements repository.SettlementStore
	interval    time.Duration
	grace       time.Duration
	batchSize   int
	stop        chan struct{}
	wg          sync.WaitGroup
	stopOnce    sync.Once
}

func NewSettlementReconciler(
	engine *TaskService,
	settlements repository.SettlementStore,
	interval time.Duration,
	grace time.Duration,
	batchSize int,
) *SettlementReconciler {
	return &SettlementReconciler{
		engine:      engine,
		settlements: settlements,
		interval:    interval,
		grace:       grace,
		batchSize:   batchSize,
		stop:        make(chan struct{}),
	}
}

func (r *SettlementReconciler) Start() {
	r.wg.Add(1)
	go r.loop()
}

func (r *SettlementReconciler) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.RunOnce(context.Background()); err != nil {
				log.Printf("reconcile: %v", err)
			}
		case <-r.stop:
			return
		}
	}
}

type ReconcileReport struct {
	Settled  int
	Rejected int
	Failed   int
}

// RunOnce processes one batch of stale pending markers.
func (r *SettlementReconciler) RunOnce(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	markers, err := r.settlements.ListPending(ctx, time.Now().UTC().Add(-r.grace), r.batchSize)
	if err != nil {
		return report, err
	}

	for _, marker := range markers {
		outcome, err := r.engine.ReconcileSettlement(ctx, marker)
		if err != nil {
			log.Printf("reconcile: task %s left pending: %v", marker.TaskID, err)
			report.Failed++
			continue
		}

		switch outcome {
		case ReconcileSettled:
			log.Printf("reconcile: task %s settled", marker.TaskID)
			report.Settled++
		case ReconcileRejected:
			log.Printf("reconcile: task %s has no transfer, marker rejected", marker.TaskID)
			report.Rejected++
		}
	}

	return report, nil
}

func (r *SettlementReconciler) Shutdown() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
}
