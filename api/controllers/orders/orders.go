package orders

import (
	"net/http"

	"github.com/angelmondragon/salesorders-backend/api/responses"
	"github.com/angelmondragon/salesorders-backend/api/validators"
	internalorders "github.com/angelmondragon/salesorders-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
	"github.com/angelmondragon/salesorders-backend/pkg/logger"
)

type replaceItemsRequest struct {
	Items []internalorders.ItemInput `json:"items" validate:"required"`
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
}

// Create opens a quotation with its initial lines. Any rejected line fails
// the whole request.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}

		var payload internalorders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrderID(svc, logg, func(w http.ResponseWriter, r *http.Request, orderID uint64) {
		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	})
}

func Delete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrderID(svc, logg, func(w http.ResponseWriter, r *http.Request, orderID uint64) {
		if err := svc.DeleteOrder(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	})
}

func AddItem(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrderID(svc, logg, func(w http.ResponseWriter, r *http.Request, orderID uint64) {
		var payload internalorders.ItemInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.AddItem(r.Context(), internalorders.AddItemInput{OrderID: orderID, ItemInput: payload})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	})
}

// RemoveItem deletes a line and returns the recalculated order totals.
func RemoveItem(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}

		itemID, err := validators.ParsePathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		totals, err := svc.RemoveItem(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, totals)
	}
}

// ReplaceItems swaps every line of the order. Rejected rows come back in the
// error details and leave the order untouched.
func ReplaceItems(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrderID(svc, logg, func(w http.ResponseWriter, r *http.Request, orderID uint64) {
		var payload replaceItemsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ReplaceItems(r.Context(), orderID, payload.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	})
}

func Totals(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrderID(svc, logg, func(w http.ResponseWriter, r *http.Request, orderID uint64) {
		totals, err := svc.GetOrderTotals(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, totals)
	})
}

func Confirm(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrderID(svc, logg, func(w http.ResponseWriter, r *http.Request, orderID uint64) {
		order, err := svc.ConfirmOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	})
}

// ApplyDiscount sets or clears the order-level discount.
func ApplyDiscount(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrderID(svc, logg, func(w http.ResponseWriter, r *http.Request, orderID uint64) {
		var payload internalorders.ApplyDiscountInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ApplyDiscount(r.Context(), orderID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	})
}

func withOrderID(svc internalorders.Service, logg *logger.Logger, next func(http.ResponseWriter, *http.Request, uint64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}

		orderID, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID)
		}
		next(w, r.WithContext(ctx), orderID)
	}
}
