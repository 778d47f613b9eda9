package server

import (
	"time"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
)

type PageRequest struct {
	Page int `query:"page"`
}

type LimitRequest struct {
	Limit int `query:"limit" validate:"gte=0,lte=500"`
}

type IDRequest struct {
	ID string `param:"id" validate:"required"`
}

type UUIDRequest struct {
	UUID string `param:"uuid" validate:"required"`
}

type VisibilityRequest struct {
	ID      string `param:"id" validate:"required"`
	Visible bool   `json:"visivel"`
}

type ClientPlanRequest struct {
	ID       string     `param:"id" validate:"required"`
	PlanName string     `json:"plan_name" validate:"required,notblank,max=50"`
	Price    float64    `json:"price" validate:"gte=0"`
	Status   string     `json:"status" validate:"max=30"`
	RenewsAt *time.Time `json:"renews_at"`
}

func (r ClientPlanRequest) toModel() models.ClientPlanRequest {
	return models.ClientPlanRequest{PlanName: r.PlanName, Price: r.Price, Status: r.Status, RenewsAt: r.RenewsAt}
}

type ClientStatRequest struct {
	ID     string `param:"id" validate:"required"`
	Label  string `json:"label" validate:"required,max=60"`
	Value  string `json:"value" validate:"required,max=60"`
	Period string `json:"period" validate:"max=30"`
}

func (r ClientStatRequest) toModel() models.ClientStatRequest {
	return models.ClientStatRequest{Label: r.Label, Value: r.Value, Period: r.Period}
}

type TicketListRequest struct {
	Scope  models.TicketScope   `query:"scope"`
	Status models.SessionStatus `query:"status"`
	Limit  int                  `query:"limit"`
}

type OutboxListRequest struct {
	Status models.OutboxStatus `query:"status"`
	Limit  int                 `query:"limit"`
}

// MyTicketsRequest lists the ticket uuids a browser remembers.
type MyTicketsRequest struct {
	UUIDs []string `json:"uuids" validate:"max=200"`
}

type ConfigRequest struct {
	Values map[string]string `json:"values" validate:"required"`
}
