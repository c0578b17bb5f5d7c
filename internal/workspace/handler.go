package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/purchasedesk/internal/platform/httpx"
	"github.com/odyssey-erp/purchasedesk/internal/purchase"
)

// PurchaseStore reads saved purchases and records supplier payments against them.
type PurchaseStore interface {
	Purchase(ctx context.Context, id int64) (purchase.Record, error)
	ListPurchases(ctx context.Context) ([]purchase.Summary, error)
	RecordPayment(ctx context.Context, purchaseID int64, in purchase.PaymentInput) (purchase.Payment, error)
	Payments(ctx context.Context, purchaseID int64) ([]purchase.Payment, error)
}

// Handler exposes workspaces and saved purchases over HTTP.
type Handler struct {
	logger    *slog.Logger
	registry  *Registry
	purchases PurchaseStore
	exporter  purchase.Exporter
	validate  *validator.Validate
}

// NewHandler builds a Handler. purchases and exporter may be nil, which disables the
// matching routes.
func NewHandler(logger *slog.Logger, registry *Registry, purchases PurchaseStore, exporter purchase.Exporter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		registry:  registry,
		purchases: purchases,
		exporter:  exporter,
		validate:  validator.New(),
	}
}

// MountRoutes registers workspace and purchase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/workspaces", func(r chi.Router) {
		r.Post("/", h.open)
		r.Route("/{workspaceID}", func(r chi.Router) {
			r.Get("/", h.show)
			r.Delete("/", h.close)
			r.Post("/events", h.event)
			r.Post("/submit", h.submit)
			r.Delete("/purchases/{purchaseID}", h.deletePurchase)
			r.Post("/purchases/{purchaseID}/edit", h.editPurchase)
		})
	})
	if h.purchases != nil {
		r.Get("/purchases", h.listPurchases)
		r.Get("/purchases/{purchaseID}", h.showPurchase)
		r.Get("/purchases/{purchaseID}/payments", h.listPayments)
		r.Post("/purchases/{purchaseID}/payments", h.recordPayment)
	}
	if h.exporter != nil {
		r.Get("/purchases/{purchaseID}/export.{format}", h.exportPurchase)
	}
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	_, view, err := h.registry.Open(r.Context())
	if err != nil {
		h.logger.Error("open workspace", slog.Any("error", err))
		httpx.RespondError(w, errors.Join(httpx.ErrUpstream, err))
		return
	}
	httpx.JSON(w, http.StatusCreated, view)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.registry.Get(chi.URLParam(r, "workspaceID"))
	if err != nil {
		httpx.RespondError(w, errors.Join(httpx.ErrNotFound, err))
		return nil, false
	}
	return s, true
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := s.View(r.Context())
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Close(chi.URLParam(r, "workspaceID")); err != nil {
		httpx.RespondError(w, errors.Join(httpx.ErrNotFound, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) event(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var ev Event
	if err := httpx.DecodeJSON(r, &ev); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(ev); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	h.run(w, r, s, func(ctx context.Context, c *purchase.Controller, res *Result) error {
		action, handled, err := apply(ctx, c, ev)
		res.Action = action
		res.Handled = handled
		return err
	})
}

type submitResult struct {
	Result
	Purchase purchase.SubmitResult `json:"purchase"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var out submitResult
	err := s.Do(r.Context(), func(c *purchase.Controller) error {
		res, err := c.Submit(r.Context())
		out.Purchase = res
		out.Handled = true
		if err != nil {
			out.Error = err.Error()
		}
		out.View = s.render(c)
		return nil
	})
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) deletePurchase(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id, err := parseID(chi.URLParam(r, "purchaseID"))
	if err != nil {
		httpx.RespondError(w, errors.Join(httpx.ErrValidation, err))
		return
	}
	h.run(w, r, s, func(ctx context.Context, c *purchase.Controller, res *Result) error {
		res.Handled = true
		return c.DeletePurchase(ctx, id)
	})
}

func (h *Handler) editPurchase(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id, err := parseID(chi.URLParam(r, "purchaseID"))
	if err != nil {
		httpx.RespondError(w, errors.Join(httpx.ErrValidation, err))
		return
	}
	h.run(w, r, s, func(ctx context.Context, c *purchase.Controller, res *Result) error {
		res.Handled = true
		return c.Edit(ctx, id)
	})
}

// run applies fn on the session goroutine and answers with the resulting view. A
// controller error is part of the result, not an HTTP failure.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, s *Session, fn func(context.Context, *purchase.Controller, *Result) error) {
	var res Result
	err := s.Do(r.Context(), func(c *purchase.Controller) error {
		if err := fn(r.Context(), c, &res); err != nil {
			res.Error = err.Error()
		}
		res.View = s.render(c)
		return nil
	})
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) respondSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrClosed) {
		httpx.RespondError(w, errors.Join(httpx.ErrNotFound, err))
		return
	}
	h.logger.Warn("workspace call", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) showPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "purchaseID"))
	if err != nil {
		httpx.RespondError(w, errors.Join(httpx.ErrValidation, err))
		return
	}
	rec, err := h.purchases.Purchase(r.Context(), id)
	if err != nil {
		h.respondPurchaseError(w, "load purchase", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	list, err := h.purchases.ListPurchases(r.Context())
	if err != nil {
		h.respondPurchaseError(w, "list purchases", err)
		return
	}
	if list == nil {
		list = []purchase.Summary{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

type paymentRequest struct {
	Method      purchase.PaymentMethod `json:"payment_method" validate:"required,oneof=cash upi neft_rtgs cheque"`
	Amount      decimal.Decimal        `json:"amount"`
	PaymentDate string                 `json:"payment_date" validate:"required,datetime=2006-01-02"`
	Details     map[string]string      `json:"details,omitempty" validate:"max=12,dive,keys,max=40,endkeys,max=200"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "purchaseID"))
	if err != nil {
		httpx.RespondError(w, errors.Join(httpx.ErrValidation, err))
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	payment, err := h.purchases.RecordPayment(r.Context(), id, purchase.PaymentInput{
		Method:      req.Method,
		Amount:      req.Amount,
		PaymentDate: req.PaymentDate,
		Details:     req.Details,
	})
	if err != nil {
		h.respondPurchaseError(w, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "purchaseID"))
	if err != nil {
		httpx.RespondError(w, errors.Join(httpx.ErrValidation, err))
		return
	}
	payments, err := h.purchases.Payments(r.Context(), id)
	if err != nil {
		h.respondPurchaseError(w, "list payments", err)
		return
	}
	if payments == nil {
		payments = []purchase.Payment{}
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *Handler) exportPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "purchaseID"))
	if err != nil {
		httpx.RespondError(w, errors.Join(httpx.ErrValidation, err))
		return
	}
	format := purchase.Format(chi.URLParam(r, "format"))
	if format != purchase.FormatPDF && format != purchase.FormatXLSX {
		httpx.RespondError(w, errors.Join(httpx.ErrNotFound, fmt.Errorf("unsupported export format %q", format)))
		return
	}
	body, contentType, err := h.exporter.Export(r.Context(), id, format)
	if err != nil {
		h.respondPurchaseError(w, "export purchase", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"purchase-%d.%s\"", id, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) respondPurchaseError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, purchase.ErrNotFound):
		httpx.RespondError(w, errors.Join(httpx.ErrNotFound, err))
		return
	case errors.Is(err, purchase.ErrValidation):
		httpx.RespondError(w, errors.Join(httpx.ErrValidation, err))
		return
	}
	h.logger.Error(msg, slog.Any("error", err))
	httpx.RespondError(w, errors.Join(httpx.ErrUpstream, err))
}
