package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ilham-education/ilham-backend/internal/models"
)

func (h *Handler) billingRoutes(r chi.Router) {
	r.Use(h.Authenticate)

	r.With(RequireRole(models.RoleStudent)).Get("/invoices", h.MyInvoices)
	r.With(RequireRole(models.RoleStudent)).Get("/payments", h.MyPayments)
	r.With(RequireRole(models.RoleAdmin, models.RoleFinance)).Post("/payment", h.RecordPayment)
}

func (h *Handler) MyInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.services.Billing.MyInvoices(r.Context(), actorFrom(r).UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", invoices)
}

func (h *Handler) MyPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.services.Billing.MyPayments(r.Context(), actorFrom(r).UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", payments)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req models.RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.services.Billing.RecordPayment(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Payment recorded", result)
}

func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}

	invoice, err := h.services.Billing.CreateInvoice(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, "Invoice created", invoice)
}

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.services.Billing.ListInvoices(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", invoices)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.services.Billing.ListPayments(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", payments)
}

func (h *Handler) UnpaidInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.services.Billing.UnpaidInvoices(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", invoices)
}
