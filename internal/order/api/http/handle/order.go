package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"quiklii/internal/order/app/core"
	"quiklii/internal/order/app/services"
	"quiklii/internal/order/domain/dto"
	"quiklii/internal/xpkg/auth"
	"quiklii/internal/xpkg/errs"
	"quiklii/internal/xpkg/logger"

	"github.com/go-chi/chi/v5"
)

type OrderHandler struct {
	orderService *services.OrderService
	mylog        logger.Logger
}

func NewOrderHandler(orderService *services.OrderService, mylog logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		mylog:        mylog,
	}
}

func (oh *OrderHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := auth.FromContext(r.Context())

		var req dto.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			oh.mylog.Action("parse_failed").Error("Failed to parse order request", err)
			jsonError(w, r, errs.Validation("failed to parse JSON body"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		order, err := oh.orderService.Create(ctx, actor, req)
		if err != nil {
			jsonError(w, r, err)
			return
		}

		jsonResponse(w, r, http.StatusCreated, dto.OrderResponse{Order: order})
	}
}

func (oh *OrderHandler) Transition() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := auth.FromContext(r.Context())

		orderID, err := orderIDParam(r)
		if err != nil {
			jsonError(w, r, err)
			return
		}

		var req dto.TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, r, errs.Validation("failed to parse JSON body"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		order, err := oh.orderService.Transition(ctx, actor, orderID, req)
		if err != nil {
			jsonError(w, r, err)
			return
		}

		jsonResponse(w, r, http.StatusOK, dto.OrderResponse{Order: order})
	}
}

func (oh *OrderHandler) Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := auth.FromContext(r.Context())

		orderID, err := orderIDParam(r)
		if err != nil {
			jsonError(w, r, err)
			return
		}

		var req dto.CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, r, errs.Validation("failed to parse JSON body"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		order, err := oh.orderService.Cancel(ctx, actor, orderID, req)
		if err != nil {
			jsonError(w, r, err)
			return
		}

		jsonResponse(w, r, http.StatusOK, dto.OrderResponse{Order: order})
	}
}

func (oh *OrderHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			jsonError(w, r, err)
			return
		}

		order, err := oh.orderService.Get(r.Context(), orderID)
		if err != nil {
			jsonError(w, r, err)
			return
		}

		jsonResponse(w, r, http.StatusOK, dto.OrderResponse{Order: order})
	}
}

func (oh *OrderHandler) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			jsonError(w, r, err)
			return
		}

		history, err := oh.orderService.History(r.Context(), orderID)
		if err != nil {
			jsonError(w, r, err)
			return
		}

		jsonResponse(w, r, http.StatusOK, dto.HistoryResponse{OrderID: orderID, History: history})
	}
}

func orderIDParam(r *http.Request) (int64, error) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		return 0, errs.Validation("order id must be a positive integer")
	}
	return orderID, nil
}
