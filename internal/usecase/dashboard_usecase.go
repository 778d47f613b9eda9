package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
)

const leadChartDays = 30

type DashboardUsecase interface {
	Load(ctx context.Context) (*models.AdminDashboard, error)
}

type dashboardUsecase struct {
	stores *repository.Stores
	now    func() time.Time
}

func NewDashboardUsecase(stores *repository.Stores) DashboardUsecase {
	return &dashboardUsecase{
		stores: stores,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (uc *dashboardUsecase) Load(ctx context.Context) (*models.AdminDashboard, error) {
	d := &models.AdminDashboard{}
	since := uc.now().AddDate(0, 0, -leadChartDays).Truncate(24 * time.Hour)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		d.Leads, err = uc.stores.Leads.Count(gctx)
		return err
	})
	group.Go(func() (err error) {
		d.Orders, err = uc.stores.Orders.Count(gctx)
		return err
	})
	group.Go(func() (err error) {
		d.Reviews, err = uc.stores.Reviews.Count(gctx)
		return err
	})
	group.Go(func() (err error) {
		d.OpenTickets, err = uc.stores.Sessions.CountOpen(gctx)
		return err
	})
	group.Go(func() (err error) {
		d.Visits, err = uc.stores.Visits.Count(gctx)
		return err
	})
	group.Go(func() (err error) {
		d.FailedEmails, err = uc.stores.Outbox.CountByStatus(gctx, models.OutboxStatusFailed)
		return err
	})
	group.Go(func() (err error) {
		d.LeadsPerDay, err = uc.stores.Leads.CountByDay(gctx, since)
		return err
	})
	group.Go(func() (err error) {
		d.SalesPerPlan, err = uc.stores.Orders.CountByPlan(gctx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}
	return d, nil
}
