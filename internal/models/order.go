package models

import "time"

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "Pendente"
	OrderStatusApproved OrderStatus = "Aprovado"
	OrderStatusRejected OrderStatus = "Rejeitado"
)

type PaymentMethod string

const (
	PaymentMethodPix  PaymentMethod = "pix"
	PaymentMethodCard PaymentMethod = "card"
)

// Order ids are uuids and double as the external reference sent to the gateway.
type Order struct {
	ID           string        `json:"id" bson:"_id" gorm:"primaryKey;size:36"`
	Plan         string        `json:"plano" bson:"plan" gorm:"index"`
	Price        float64       `json:"preco" bson:"price"`
	Method       PaymentMethod `json:"metodo" bson:"method" gorm:"size:10"`
	Installments string        `json:"parcelas" bson:"installments"`
	Status       OrderStatus   `json:"status" bson:"status" gorm:"size:20"`
	PayerEmail   string        `json:"email,omitempty" bson:"payer_email,omitempty"`
	GatewayRef   string        `json:"gateway_ref,omitempty" bson:"gateway_ref,omitempty"`
	PixCode      string        `json:"pix_code,omitempty" bson:"pix_code,omitempty"`
	CheckoutURL  string        `json:"checkout_url,omitempty" bson:"checkout_url,omitempty"`
	CreatedAt    time.Time     `json:"data" bson:"created_at" gorm:"index"`
	UpdatedAt    time.Time     `json:"updated_at" bson:"updated_at"`
}

func (Order) CollectionName() string { return "orders" }
func (Order) TableName() string      { return "orders" }

// GatewayStatus maps a payment gateway status to the local one.
// ok is false for statuses that leave the order untouched.
func GatewayStatus(s string) (status OrderStatus, ok bool) {
	switch s {
	case "approved":
		return OrderStatusApproved, true
	case "rejected", "cancelled":
		return OrderStatusRejected, true
	}
	return "", false
}

type PixPayment struct {
	GatewayID string `json:"id"`
	Status    string `json:"status"`
	QRCode    string `json:"qr_code"`
}

type CheckoutPreference struct {
	GatewayID string `json:"id"`
	InitPoint string `json:"init_point"`
}

type GatewayPayment struct {
	GatewayID         string `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

type PaymentRequest struct {
	OrderID     string
	Description string
	Amount      float64
	PayerEmail  string
	// Installments is only meaningful for card checkouts.
	Installments int
}

type OrderRequest struct {
	Plan         string `json:"plano" form:"plano" validate:"required,max=50"`
	Method       string `json:"metodo" form:"metodo" validate:"required"`
	Installments string `json:"parcelas" form:"parcelas"`
	Email        string `json:"email" form:"email" validate:"omitempty,email"`
	// Price sent by the browser is ignored; the plan price is authoritative.
	Price any `json:"preco"`
}

// PaymentNotification is a gateway webhook after decoding either of its shapes.
type PaymentNotification struct {
	Type              string
	PaymentID         string
	ExternalReference string
	Status            string
}

// CheckoutView is what the checkout page renders for a plan.
type CheckoutView struct {
	Plan           *PublicPlan
	FormattedPrice string
}
