package handle

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"quiklii/internal/payment/adapter/provider"
	"quiklii/internal/payment/app/core"
	"quiklii/internal/payment/app/services"
	"quiklii/internal/payment/domain/dto"
	"quiklii/internal/payment/domain/models"
	"quiklii/internal/xpkg/auth"
	"quiklii/internal/xpkg/errs"
	"quiklii/internal/xpkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	paymentService *services.PaymentService
	providers      *provider.Registry
	mylog          logger.Logger
}

func NewPaymentHandler(paymentService *services.PaymentService, providers *provider.Registry, mylog logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		providers:      providers,
		mylog:          mylog,
	}
}

func (ph *PaymentHandler) Initiate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := auth.FromContext(r.Context())

		var req dto.InitiatePaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, r, errs.Validation("failed to parse JSON body"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		payment, err := ph.paymentService.Initiate(ctx, actor, req)
		if err != nil {
			jsonError(w, r, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, dto.InitiatePaymentResponse{
			PaymentID: payment.ID,
			Reference: payment.Reference,
			Status:    payment.Status,
		})
	}
}

func (ph *PaymentHandler) Webhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerName := models.Provider(chi.URLParam(r, "provider"))

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			jsonError(w, r, errs.Validation("failed to read webhook body"))
			return
		}

		signature := r.Header.Get(ph.providers.SignatureHeader(providerName))

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		if err := ph.paymentService.HandleCallback(ctx, providerName, signature, body); err != nil {
			jsonError(w, r, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]string{"status": "processed"})
	}
}

func (ph *PaymentHandler) RecordRefund() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.RefundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, r, errs.Validation("failed to parse JSON body"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		intent, err := ph.paymentService.RecordRefundIntent(ctx, req)
		if err != nil {
			jsonError(w, r, err)
			return
		}
		if intent == nil {
			render.Status(r, http.StatusNoContent)
			render.NoContent(w, r)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, intent)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func jsonError(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, errs.HTTPStatus(err))
	render.JSON(w, r, errorBody{
		Error:   string(errs.KindOf(err)),
		Message: err.Error(),
	})
}
