package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/events"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/payment"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/util"
)

const (
	OrderPageSize   = 20
	maxInstallments = 12
	pixQRCodeSize   = 320
)

type OrderUsecase interface {
	Checkout(ctx context.Context, planName string) (*models.CheckoutView, error)
	CreateOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error)
	HandleNotification(ctx context.Context, n models.PaymentNotification) (*models.Order, error)
	PixQRCode(ctx context.Context, orderID string) ([]byte, error)
	Paginate(ctx context.Context, page int) (*models.Page[*models.Order], error)
}

type orderUsecase struct {
	orderRepo   repository.OrderRepository
	planRepo    repository.PublicPlanRepository
	gateway     payment.Client
	publisher   events.Publisher
	outbox      OutboxUsecase
	adminEmail  string
	trustDirect bool
	now         func() time.Time
}

func NewOrderUsecase(
	orderRepo repository.OrderRepository,
	planRepo repository.PublicPlanRepository,
	gateway payment.Client,
	publisher events.Publisher,
	outbox OutboxUsecase,
	cfg *config.Config,
) OrderUsecase {
	return &orderUsecase{
		orderRepo:  orderRepo,
		planRepo:   planRepo,
		gateway:    gateway,
		publisher:  publisher,
		outbox:     outbox,
		adminEmail: cfg.Mail.AdminAddress,
		// status-only notifications cannot be verified against the gateway
		trustDirect: !cfg.IsProduction(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (uc *orderUsecase) Checkout(ctx context.Context, planName string) (*models.CheckoutView, error) {
	plan, err := uc.planRepo.GetByName(ctx, strings.TrimSpace(planName))
	if err != nil {
		return nil, err
	}
	return &models.CheckoutView{Plan: plan, FormattedPrice: util.FormatBRL(plan.Price)}, nil
}

func parseMethod(s string) (models.PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pix":
		return models.PaymentMethodPix, nil
	case "card", "cartao", "cartão", "credito", "crédito":
		return models.PaymentMethodCard, nil
	}
	return "", models.InvalidArgument("método de pagamento inválido: %s", s)
}

// parseInstallments accepts "3x", "3" or an empty value meaning a single payment.
func parseInstallments(s string) (int, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "x")
	if s == "" {
		return 1, nil
	}
	n, err := cast.ToIntE(s)
	if err != nil || n < 1 || n > maxInstallments {
		return 0, models.InvalidArgument("parcelas inválidas: %s", s)
	}
	return n, nil
}

func (uc *orderUsecase) CreateOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	method, err := parseMethod(req.Method)
	if err != nil {
		return nil, err
	}
	installments, err := parseInstallments(req.Installments)
	if err != nil {
		return nil, err
	}
	if method == models.PaymentMethodPix {
		installments = 1
	}
	plan, err := uc.planRepo.GetByName(ctx, strings.TrimSpace(req.Plan))
	if err != nil {
		return nil, err
	}

	now := uc.now()
	order := &models.Order{
		ID:           uuid.NewString(),
		Plan:         plan.Name,
		Price:        plan.Price,
		Method:       method,
		Installments: fmt.Sprintf("%dx", installments),
		Status:       models.OrderStatusPending,
		PayerEmail:   strings.ToLower(strings.TrimSpace(req.Email)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	uc.publish(ctx, models.EventOrderCreated, order)

	paymentReq := models.PaymentRequest{
		OrderID:      order.ID,
		Description:  "Plano " + plan.Name,
		Amount:       plan.Price,
		PayerEmail:   order.PayerEmail,
		Installments: installments,
	}
	switch method {
	case models.PaymentMethodPix:
		pix, err := uc.gateway.CreatePixPayment(ctx, paymentReq)
		if err != nil {
			log.Errorw(ctx, "create pix payment", "order_id", order.ID, "error", err)
			return order, models.ErrUnavailable
		}
		order.GatewayRef = pix.GatewayID
		order.PixCode = pix.QRCode
	case models.PaymentMethodCard:
		pref, err := uc.gateway.CreatePreference(ctx, paymentReq)
		if err != nil {
			log.Errorw(ctx, "create checkout preference", "order_id", order.ID, "error", err)
			return order, models.ErrUnavailable
		}
		order.GatewayRef = pref.GatewayID
		order.CheckoutURL = pref.InitPoint
	}

	order.UpdatedAt = uc.now()
	if err := uc.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	return order, nil
}

func (uc *orderUsecase) HandleNotification(ctx context.Context, n models.PaymentNotification) (*models.Order, error) {
	ref, gatewayStatus := n.ExternalReference, n.Status
	switch {
	case n.PaymentID != "":
		if n.Type != "" && n.Type != "payment" {
			log.Debugw(ctx, "ignoring notification", "type", n.Type)
			return nil, nil
		}
		p, err := uc.gateway.GetPayment(ctx, n.PaymentID)
		if err != nil {
			return nil, fmt.Errorf("get payment %s: %w", n.PaymentID, err)
		}
		ref, gatewayStatus = p.ExternalReference, p.Status
	case ref != "" && uc.trustDirect:
	default:
		return nil, models.InvalidArgument("notificação sem referência de pagamento")
	}

	order, err := uc.orderRepo.GetByID(ctx, ref)
	if err != nil {
		return nil, err
	}
	status, ok := models.GatewayStatus(gatewayStatus)
	if !ok || status == order.Status {
		return order, nil
	}

	previous := order.Status
	order.Status = status
	order.UpdatedAt = uc.now()
	if err := uc.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	log.Infow(ctx, "order status changed", "order_id", order.ID, "from", previous, "to", status)
	uc.publish(ctx, models.EventOrderStatusChanged, order)

	if status == models.OrderStatusApproved {
		data := map[string]any{
			"order_id":     order.ID,
			"plan":         order.Plan,
			"price":        order.Price,
			"method":       string(order.Method),
			"installments": order.Installments,
		}
		to := []string{order.PayerEmail, uc.adminEmail}
		if err := uc.outbox.Enqueue(ctx, to, "Pagamento aprovado: plano "+order.Plan, TemplateOrderApproved, data); err != nil {
			log.Warnw(ctx, "enqueue order confirmation", "order_id", order.ID, "error", err)
		}
	}
	return order, nil
}

func (uc *orderUsecase) PixQRCode(ctx context.Context, orderID string) ([]byte, error) {
	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Method != models.PaymentMethodPix {
		return nil, models.ErrNotFound
	}
	return payment.QRCodePNG(order.PixCode, pixQRCodeSize)
}

func (uc *orderUsecase) Paginate(ctx context.Context, page int) (*models.Page[*models.Order], error) {
	return uc.orderRepo.Paginate(ctx, page, OrderPageSize)
}

func (uc *orderUsecase) publish(ctx context.Context, typ models.EventType, order *models.Order) {
	err := uc.publisher.Publish(ctx, models.Event{
		Type: typ,
		Key:  order.ID,
		At:   uc.now(),
		Payload: map[string]any{
			"plan":   order.Plan,
			"price":  order.Price,
			"method": order.Method,
			"status": order.Status,
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warnw(ctx, "publish order event", "type", typ, "order_id", order.ID, "error", err)
	}
}
