package payments

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/maarifa-ai/maarifa/pkg/xlog"
)

const (
	reconcileSchedule = "@every 5m"
	pendingStaleAfter = 15 * time.Minute
	reconcileTimeout  = 2 * time.Minute
)

// Reconciler periodically sweeps stale pending payments and re-checks
// them against the gateway. Webhook delivery is best-effort on the
// provider side; the sweep catches payments whose webhook never
// arrived. Transitions are the same conditional updates the webhooks
// use, so a webhook racing the sweep is harmless.
type Reconciler struct {
	service *Service
	cron    *cron.Cron
}

func NewReconciler(service *Service) *Reconciler {
	return &Reconciler{
		service: service,
		cron:    cron.New(),
	}
}

func (r *Reconciler) Start() error {
	if _, err := r.cron.AddFunc(reconcileSchedule, r.sweep); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

func (r *Reconciler) Stop() {
	r.cron.Stop()
}

func (r *Reconciler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	stale, err := r.service.store.ListStalePending(ctx, pendingStaleAfter)
	if err != nil {
		xlog.Error("Payment reconciliation sweep failed to list pending records", "error", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	xlog.Info("Reconciling stale pending payments", "count", len(stale))
	for _, rec := range stale {
		if _, err := r.service.Verify(ctx, rec.ID); err != nil {
			xlog.Warn("Could not reconcile pending payment", "paymentId", rec.ID, "error", err)
		}
	}
}
