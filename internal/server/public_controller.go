package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tidwall/gjson"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	pkgmdw "github.com/kapimkk/Projeto-Agencia-Marketing/internal/server/middleware"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
)

const (
	reviewsPageLimit = 50
	maxWebhookBody   = 64 << 10
)

func success(extra ...any) map[string]any {
	out := map[string]any{"status": "success"}
	for i := 0; i+1 < len(extra); i += 2 {
		out[extra[i].(string)] = extra[i+1]
	}
	return out
}

func (h *controller) Home(c echo.Context) error {
	ctx := c.Request().Context()
	h.cms.RecordVisit(ctx, "home")
	content, err := h.cms.SiteContent(ctx)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "home.html", pageData(c, content))
}

func (h *controller) ReviewsPage(c echo.Context) error {
	ctx := c.Request().Context()
	h.cms.RecordVisit(ctx, "avaliacoes")
	reviews, err := h.reviews.ListVisible(ctx, reviewsPageLimit)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "avaliacoes.html", pageData(c, reviews))
}

func (h *controller) PublicReviews(c echo.Context) error {
	reviews, err := h.reviews.ListVisible(c.Request().Context(), reviewsPageLimit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reviews)
}

func (h *controller) Checkout(c echo.Context) error {
	view, err := h.orders.Checkout(c.Request().Context(), c.Param("plano"))
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "checkout.html", pageData(c, view))
}

// SubmitLead accepts the contact form as JSON or multipart with an optional "arquivo".
func (h *controller) SubmitLead(c echo.Context) error {
	var req models.LeadRequest
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}
	attachment, err := formFile(c, "arquivo")
	if err != nil {
		return err
	}
	defer attachment.Close()

	lead, err := h.leads.Submit(c.Request().Context(), req, attachment.model())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, success("id", lead.ID))
}

func (h *controller) SubmitReview(c echo.Context) error {
	var req models.ReviewRequest
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := h.reviews.Submit(c.Request().Context(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, success("message", "Avaliação enviada para moderação."))
}

func (h *controller) ProcessPayment(c echo.Context) error {
	var req models.OrderRequest
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}
	order, err := h.orders.CreateOrder(c.Request().Context(), req)
	if err != nil {
		return err
	}
	resp := success("order_id", order.ID, "metodo", order.Method, "parcelas", order.Installments)
	switch order.Method {
	case models.PaymentMethodPix:
		resp["pix_code"] = order.PixCode
		resp["qr_code_url"] = "/api/orders/" + order.ID + "/pix.png"
	case models.PaymentMethodCard:
		resp["checkout_url"] = order.CheckoutURL
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *controller) PixQRCode(c echo.Context) error {
	png, err := h.orders.PixQRCode(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, "image/png", png)
}

// PaymentWebhook reads either notification shape the gateway sends:
// `{"type":"payment","data":{"id":"123"}}` (or the same as query params) and the
// direct `{"external_reference":"...","status":"approved"}`.
func (h *controller) PaymentWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return models.InvalidArgument("corpo inválido")
	}

	n := parseNotification(body, c.QueryParam)
	order, err := h.orders.HandleNotification(ctx, n)
	if err != nil {
		log.Warnw(ctx, "payment notification", "payment_id", n.PaymentID, "reference", n.ExternalReference, "error", err)
		return err
	}
	if order == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": string(order.Status)})
}

func parseNotification(body []byte, query func(string) string) models.PaymentNotification {
	doc := gjson.ParseBytes(body)
	first := func(values ...string) string {
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
		return ""
	}
	n := models.PaymentNotification{
		Type:              first(doc.Get("type").String(), doc.Get("topic").String(), query("type"), query("topic")),
		PaymentID:         first(doc.Get("data.id").String(), query("data.id")),
		ExternalReference: first(doc.Get("external_reference").String(), doc.Get("data.external_reference").String()),
		Status:            first(doc.Get("status").String(), doc.Get("data.status").String()),
	}
	// legacy IPN: ?topic=payment&id=123
	if n.PaymentID == "" && n.Type == "payment" {
		n.PaymentID = query("id")
	}
	return n
}
