// Package payment talks to the Mercado Pago REST API.
package payment

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/util"
	"github.com/skip2/go-qrcode"
	"github.com/tidwall/gjson"
)

type Client interface {
	CreatePixPayment(ctx context.Context, req models.PaymentRequest) (*models.PixPayment, error)
	CreatePreference(ctx context.Context, req models.PaymentRequest) (*models.CheckoutPreference, error)
	GetPayment(ctx context.Context, paymentID string) (*models.GatewayPayment, error)
}

type client struct {
	http            *resty.Client
	notificationURL string
	returnURL       string
}

func NewClient(cfg config.PaymentConfig, baseURL string) Client {
	c := util.NewRestyClient().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json")

	site := strings.TrimRight(baseURL, "/")
	return &client{
		http:            c,
		notificationURL: site + "/webhook/mercadopago",
		returnURL:       site + "/",
	}
}

type payer struct {
	Email string `json:"email"`
}

type pixPaymentBody struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	ExternalReference string  `json:"external_reference"`
	NotificationURL   string  `json:"notification_url,omitempty"`
	Payer             payer   `json:"payer"`
}

func (c *client) CreatePixPayment(ctx context.Context, req models.PaymentRequest) (*models.PixPayment, error) {
	body := pixPaymentBody{
		TransactionAmount: req.Amount,
		Description:       req.Description,
		PaymentMethodID:   "pix",
		ExternalReference: req.OrderID,
		NotificationURL:   c.notificationURL,
		Payer:             payer{Email: req.PayerEmail},
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Idempotency-Key", req.OrderID).
		SetBody(body).
		Post("/v1/payments")
	if err := checkResponse("create pix payment", resp, err); err != nil {
		return nil, err
	}

	raw := resp.Body()
	return &models.PixPayment{
		GatewayID: gjson.GetBytes(raw, "id").String(),
		Status:    gjson.GetBytes(raw, "status").String(),
		QRCode:    gjson.GetBytes(raw, "point_of_interaction.transaction_data.qr_code").String(),
	}, nil
}

type preferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type preferenceBody struct {
	Items             []preferenceItem  `json:"items"`
	ExternalReference string            `json:"external_reference"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	Payer             payer             `json:"payer"`
	PaymentMethods    map[string]int    `json:"payment_methods,omitempty"`
	BackURLs          map[string]string `json:"back_urls,omitempty"`
}

func (c *client) CreatePreference(ctx context.Context, req models.PaymentRequest) (*models.CheckoutPreference, error) {
	body := preferenceBody{
		Items: []preferenceItem{{
			Title:      req.Description,
			Quantity:   1,
			UnitPrice:  req.Amount,
			CurrencyID: "BRL",
		}},
		ExternalReference: req.OrderID,
		NotificationURL:   c.notificationURL,
		Payer:             payer{Email: req.PayerEmail},
		BackURLs: map[string]string{
			"success": c.returnURL,
			"failure": c.returnURL,
			"pending": c.returnURL,
		},
	}
	if req.Installments > 0 {
		body.PaymentMethods = map[string]int{"installments": req.Installments}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/checkout/preferences")
	if err := checkResponse("create preference", resp, err); err != nil {
		return nil, err
	}

	raw := resp.Body()
	return &models.CheckoutPreference{
		GatewayID: gjson.GetBytes(raw, "id").String(),
		InitPoint: gjson.GetBytes(raw, "init_point").String(),
	}, nil
}

func (c *client) GetPayment(ctx context.Context, paymentID string) (*models.GatewayPayment, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", paymentID).
		Get("/v1/payments/{id}")
	if resp != nil && resp.StatusCode() == http.StatusNotFound {
		return nil, models.ErrNotFound
	}
	if err := checkResponse("get payment", resp, err); err != nil {
		return nil, err
	}

	raw := resp.Body()
	return &models.GatewayPayment{
		GatewayID:         gjson.GetBytes(raw, "id").String(),
		Status:            gjson.GetBytes(raw, "status").String(),
		ExternalReference: gjson.GetBytes(raw, "external_reference").String(),
	}, nil
}

func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: gateway returned %d: %s", op, resp.StatusCode(), gjson.GetBytes(resp.Body(), "message").String())
	}
	return nil
}

// QRCodePNG renders a PIX copy-paste code as a PNG image.
func QRCodePNG(code string, size int) ([]byte, error) {
	if code == "" {
		return nil, models.ErrNotFound
	}
	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
