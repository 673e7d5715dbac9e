package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/salesorders-backend/internal/discounts"
	"github.com/angelmondragon/salesorders-backend/internal/products"
	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
	"github.com/angelmondragon/salesorders-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
	"github.com/angelmondragon/salesorders-backend/pkg/logger"
	"github.com/angelmondragon/salesorders-backend/pkg/money"
)

const (
	opCreateOrder   = "create_order"
	opAddItem       = "add_item"
	opRemoveItem    = "remove_item"
	opReplaceItems  = "replace_items"
	opConfirmOrder  = "confirm_order"
	opDeleteOrder   = "delete_order"
	opApplyDiscount = "apply_discount"
	opRecalcTotals  = "recalc_totals"
)

var hundred = decimal.NewFromInt(100)

// Service keeps an order's monetary state consistent with its items.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, orderID uint64) (*OrderDTO, error)
	AddItem(ctx context.Context, input AddItemInput) (*ItemDTO, error)
	RemoveItem(ctx context.Context, itemID uint64) (*Totals, error)
	ReplaceItems(ctx context.Context, orderID uint64, rows []ItemInput) (*ReplaceResult, error)
	RecalcOrderTotals(ctx context.Context, orderID uint64) (*Totals, error)
	GetOrderTotals(ctx context.Context, orderID uint64) (*Totals, error)
	ConfirmOrder(ctx context.Context, orderID uint64) (*OrderDTO, error)
	DeleteOrder(ctx context.Context, orderID uint64) error
	ApplyDiscount(ctx context.Context, orderID uint64, input ApplyDiscountInput) (*OrderDTO, error)
}

type service struct {
	orders    Repository
	products  products.Repository
	discounts discounts.Repository
	tx        txRunner
	locker    OrderLocker
	observer  Observer
	logg      *logger.Logger
}

// NewService builds the pricing engine. A nil locker falls back to an
// in-process keyed mutex; a nil observer records nothing.
func NewService(
	orderRepo Repository,
	productRepo products.Repository,
	discountRepo discounts.Repository,
	tx txRunner,
	locker OrderLocker,
	observer Observer,
	logg *logger.Logger,
) (Service, error) {
	if orderRepo == nil {
		return nil, errors.New("orders repository required")
	}
	if productRepo == nil {
		return nil, errors.New("product repository required")
	}
	if discountRepo == nil {
		return nil, errors.New("discount repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &service{
		orders:    orderRepo,
		products:  productRepo,
		discounts: discountRepo,
		tx:        tx,
		locker:    locker,
		observer:  observer,
		logg:      logg,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (out *OrderDTO, err error) {
	defer s.track(opCreateOrder, time.Now(), &err)

	if input.ClientID == 0 || input.RepresentativeID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client_id and representative_id are required")
	}
	if err := validatePercentage(input.DiscountPercentage); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)

		percentage := input.DiscountPercentage
		if input.DiscountID != nil {
			tier, err := s.loadTier(ctx, tx, *input.DiscountID)
			if err != nil {
				return err
			}
			if percentage == nil {
				pct := tier.Percentage
				percentage = &pct
			}
		}

		items, rejections, err := s.buildItems(ctx, tx, input.Items)
		if err != nil {
			return err
		}
		if len(rejections) > 0 {
			return rejectionsError(rejections)
		}

		order := &models.Order{
			ClientID:           input.ClientID,
			RepresentativeID:   input.RepresentativeID,
			Status:             enums.OrderStatusQuotation,
			DiscountID:         input.DiscountID,
			DiscountPercentage: percentage,
			Notes:              input.Notes,
		}
		if err := orderRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := orderRepo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create order items")
		}
		if _, err := s.recalc(ctx, tx, order.ID); err != nil {
			return err
		}
		out, err = s.loadOrderDTO(ctx, orderRepo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, out.ID, "order.created", map[string]any{
		"representative_id": out.RepresentativeID,
		"items":             len(out.Items),
	})
	return out, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uint64) (*OrderDTO, error) {
	return s.loadOrderDTO(ctx, s.orders, orderID)
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (out *ItemDTO, err error) {
	defer s.track(opAddItem, time.Now(), &err)

	if input.Quantity <= 0 {
		return nil, invalidQuantity(input.Quantity)
	}

	err = s.mutateOrder(ctx, input.OrderID, func(tx *gorm.DB, order *models.Order) error {
		items, rejections, err := s.buildItems(ctx, tx, []ItemInput{input.ItemInput})
		if err != nil {
			return err
		}
		if len(rejections) > 0 {
			rej := rejections[0]
			return pkgerrors.New(rej.Code, rej.Reason).WithDetails(map[string]any{"product_id": input.ProductID})
		}

		items[0].OrderID = order.ID
		orderRepo := s.orders.WithTx(tx)
		if err := orderRepo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create order item")
		}
		if _, err := s.recalc(ctx, tx, order.ID); err != nil {
			return err
		}
		reloaded, err := orderRepo.FindItem(ctx, items[0].ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "reload order item")
		}
		dto := itemFromModel(*reloaded)
		out = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, input.OrderID, "order.item.added", map[string]any{
		"item_id":    out.ID,
		"product_id": out.ProductID,
		"quantity":   out.Quantity,
	})
	return out, nil
}

func (s *service) RemoveItem(ctx context.Context, itemID uint64) (out *Totals, err error) {
	defer s.track(opRemoveItem, time.Now(), &err)

	item, err := s.orders.FindItem(ctx, itemID)
	if err != nil {
		return nil, mapItemError(err, itemID)
	}

	err = s.mutateOrder(ctx, item.OrderID, func(tx *gorm.DB, order *models.Order) error {
		if err := s.orders.WithTx(tx).DeleteItem(ctx, itemID); err != nil {
			return mapItemError(err, itemID)
		}
		totals, err := s.recalc(ctx, tx, order.ID)
		out = totals
		return err
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, item.OrderID, "order.item.removed", map[string]any{"item_id": itemID})
	return out, nil
}

// ReplaceItems swaps every line of the order for rows. The batch is
// all-or-nothing: when any row is refused nothing is written, the result lists
// every refused row, and the returned error carries the same list.
func (s *service) ReplaceItems(ctx context.Context, orderID uint64, rows []ItemInput) (out *ReplaceResult, err error) {
	defer s.track(opReplaceItems, time.Now(), &err)

	var rejected []RowRejection
	err = s.mutateOrder(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		items, rejections, err := s.buildItems(ctx, tx, rows)
		if err != nil {
			return err
		}
		if len(rejections) > 0 {
			rejected = rejections
			return rejectionsError(rejections)
		}

		orderRepo := s.orders.WithTx(tx)
		if err := orderRepo.DeleteItems(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "clear order items")
		}
		for i := range items {
			items[i].OrderID = orderID
		}
		if err := orderRepo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create order items")
		}
		totals, err := s.recalc(ctx, tx, orderID)
		if err != nil {
			return err
		}
		accepted, err := orderRepo.ListItems(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list order items")
		}
		out = &ReplaceResult{Accepted: itemsFromModels(accepted), Rejected: []RowRejection{}, Totals: *totals}
		return nil
	})
	if err != nil {
		if len(rejected) > 0 {
			return &ReplaceResult{Accepted: []ItemDTO{}, Rejected: rejected}, err
		}
		return nil, err
	}

	s.info(ctx, orderID, "order.items.replaced", map[string]any{
		"accepted": len(out.Accepted),
		"subtotal": out.Totals.Subtotal.String(),
	})
	return out, nil
}

// RecalcOrderTotals rederives commissions and totals from the persisted
// items under the order lock. Confirmed orders are left untouched.
func (s *service) RecalcOrderTotals(ctx context.Context, orderID uint64) (out *Totals, err error) {
	defer s.track(opRecalcTotals, time.Now(), &err)

	err = s.mutateOrder(ctx, orderID, func(tx *gorm.DB, _ *models.Order) error {
		totals, err := s.recalc(ctx, tx, orderID)
		if err != nil {
			return err
		}
		out = totals
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) GetOrderTotals(ctx context.Context, orderID uint64) (*Totals, error) {
	order, err := loadOrder(ctx, s.orders, orderID, false)
	if err != nil {
		return nil, err
	}
	totals := totalsFromModel(*order)
	return &totals, nil
}

func (s *service) ConfirmOrder(ctx context.Context, orderID uint64) (out *OrderDTO, err error) {
	defer s.track(opConfirmOrder, time.Now(), &err)

	err = s.mutateOrder(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		if !order.Status.CanTransitionTo(enums.OrderStatusConfirmed) {
			return invalidState(order)
		}
		if _, err := s.recalc(ctx, tx, orderID); err != nil {
			return err
		}
		orderRepo := s.orders.WithTx(tx)
		ok, err := orderRepo.UpdateStatus(ctx, orderID, order.Status, enums.OrderStatusConfirmed)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "confirm order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently").
				WithDetails(map[string]any{"order_id": orderID})
		}
		out, err = s.loadOrderDTO(ctx, orderRepo, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, orderID, "order.confirmed", map[string]any{"total": out.Total.String()})
	return out, nil
}

// DeleteOrder removes a quotation and its items.
func (s *service) DeleteOrder(ctx context.Context, orderID uint64) (err error) {
	defer s.track(opDeleteOrder, time.Now(), &err)

	err = s.mutateOrder(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		orderRepo := s.orders.WithTx(tx)
		if err := orderRepo.DeleteItems(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "delete order items")
		}
		if err := orderRepo.DeleteOrder(ctx, orderID); err != nil {
			return mapOrderError(err, orderID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.info(ctx, orderID, "order.deleted", nil)
	return nil
}

func (s *service) ApplyDiscount(ctx context.Context, orderID uint64, input ApplyDiscountInput) (out *OrderDTO, err error) {
	defer s.track(opApplyDiscount, time.Now(), &err)

	if err := validatePercentage(input.Percentage); err != nil {
		return nil, err
	}

	err = s.mutateOrder(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		percentage := input.Percentage
		if input.DiscountID != nil {
			tier, err := s.loadTier(ctx, tx, *input.DiscountID)
			if err != nil {
				return err
			}
			if percentage == nil {
				pct := tier.Percentage
				percentage = &pct
			}
		}

		orderRepo := s.orders.WithTx(tx)
		if err := orderRepo.UpdateDiscount(ctx, orderID, input.DiscountID, percentage); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "apply discount")
		}
		if _, err := s.recalc(ctx, tx, orderID); err != nil {
			return err
		}
		dto, err := s.loadOrderDTO(ctx, orderRepo, orderID)
		out = dto
		return err
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, orderID, "order.discount.applied", map[string]any{"discount_amount": out.DiscountAmount.String()})
	return out, nil
}

// mutateOrder runs fn under the order lock, inside a transaction, with the
// order row locked and known to be a quotation.
func (s *service) mutateOrder(ctx context.Context, orderID uint64, fn func(tx *gorm.DB, order *models.Order) error) error {
	waitStart := time.Now()
	unlock, err := s.locker.Lock(ctx, orderID)
	s.observer.ObserveLockWait(time.Since(waitStart))
	if err != nil {
		return err
	}
	defer unlock()

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := loadOrder(ctx, s.orders.WithTx(tx), orderID, true)
		if err != nil {
			return err
		}
		if !order.Status.Mutable() {
			return invalidState(order)
		}
		return fn(tx, order)
	})
}

func (s *service) recalc(ctx context.Context, tx *gorm.DB, orderID uint64) (*Totals, error) {
	orderRepo := s.orders.WithTx(tx)
	order, err := loadOrder(ctx, orderRepo, orderID, true)
	if err != nil {
		return nil, err
	}
	items, err := orderRepo.ListItems(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list order items")
	}
	tiers, err := s.discounts.WithTx(tx).FindByIDs(ctx, referencedTiers(order, items))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load discount tiers")
	}

	subtotals := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		subtotals = append(subtotals, item.Subtotal)
		commission := money.Percent(item.Subtotal, commissionRate(item, order, tiers))
		if commission.Equal(item.Commission) {
			continue
		}
		if err := orderRepo.UpdateItemCommission(ctx, item.ID, commission); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update item commission")
		}
	}

	subtotal := money.Round2(money.Sum(subtotals...))
	discountAmount := decimal.Zero
	if order.DiscountPercentage != nil {
		discountAmount = money.Percent(subtotal, *order.DiscountPercentage)
	}
	totals := Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		Total:          subtotal.Sub(discountAmount),
	}

	ok, err := orderRepo.UpdateTotals(ctx, orderID, order.Version, totals)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update order totals")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently").
			WithDetails(map[string]any{"order_id": orderID, "version": order.Version})
	}

	s.debug(ctx, orderID, "order.recalculated", map[string]any{
		"subtotal":        totals.Subtotal.String(),
		"discount_amount": totals.DiscountAmount.String(),
		"total":           totals.Total.String(),
	})
	return &totals, nil
}

// buildItems validates every row independently and prices the accepted ones.
func (s *service) buildItems(ctx context.Context, tx *gorm.DB, rows []ItemInput) ([]models.OrderItem, []RowRejection, error) {
	tierIDs := make([]uint64, 0, len(rows))
	for _, row := range rows {
		if row.DiscountID != nil {
			tierIDs = append(tierIDs, *row.DiscountID)
		}
	}
	tiers, err := s.discounts.WithTx(tx).FindByIDs(ctx, tierIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load discount tiers")
	}

	productRepo := s.products.WithTx(tx)
	items := make([]models.OrderItem, 0, len(rows))
	var rejections []RowRejection
	for i, row := range rows {
		item, rejection, err := buildItem(ctx, productRepo, tiers, row)
		if err != nil {
			return nil, nil, err
		}
		if rejection != nil {
			rejection.Row = i
			rejections = append(rejections, *rejection)
			continue
		}
		items = append(items, *item)
	}
	return items, rejections, nil
}

func buildItem(ctx context.Context, productRepo products.Repository, tiers map[uint64]models.DiscountTier, row ItemInput) (*models.OrderItem, *RowRejection, error) {
	if row.Quantity <= 0 {
		return nil, &RowRejection{Code: pkgerrors.CodeInvalidQuantity, Reason: "quantity must be greater than zero"}, nil
	}

	product, err := productRepo.FindByID(ctx, row.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &RowRejection{Code: pkgerrors.CodeProductNotFound, Reason: "product not found"}, nil
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load product")
	}
	if !product.Active {
		return nil, &RowRejection{Code: pkgerrors.CodeProductNotFound, Reason: "product is inactive"}, nil
	}

	unitPrice := product.Price
	if row.UnitPrice != nil {
		if row.UnitPrice.IsNegative() {
			return nil, &RowRejection{Code: pkgerrors.CodeValidation, Reason: "unit price must not be negative"}, nil
		}
		if !money.IsCents(*row.UnitPrice) {
			return nil, &RowRejection{Code: pkgerrors.CodeValidation, Reason: "unit price must have at most two decimal places"}, nil
		}
		unitPrice = *row.UnitPrice
	}
	unitPrice = money.Round2(unitPrice)

	item := &models.OrderItem{
		ProductID:  product.ID,
		Quantity:   row.Quantity,
		UnitPrice:  unitPrice,
		Subtotal:   money.LineSubtotal(row.Quantity, unitPrice),
		Commission: decimal.Zero,
	}
	if row.DiscountID != nil {
		tier, ok := tiers[*row.DiscountID]
		if !ok {
			return nil, &RowRejection{Code: pkgerrors.CodeValidation, Reason: "discount tier not found"}, nil
		}
		pct := tier.Percentage
		item.DiscountID = row.DiscountID
		item.DiscountPercentage = &pct
	}
	return item, nil, nil
}

// commissionRate picks the item's own tier, else the order's tier, else zero.
func commissionRate(item models.OrderItem, order *models.Order, tiers map[uint64]models.DiscountTier) decimal.Decimal {
	if item.DiscountID != nil {
		if tier, ok := tiers[*item.DiscountID]; ok {
			return tier.Commission
		}
	}
	if order.DiscountID != nil {
		if tier, ok := tiers[*order.DiscountID]; ok {
			return tier.Commission
		}
	}
	return decimal.Zero
}

func referencedTiers(order *models.Order, items []models.OrderItem) []uint64 {
	seen := make(map[uint64]struct{})
	ids := make([]uint64, 0, len(items)+1)
	add := func(id *uint64) {
		if id == nil {
			return
		}
		if _, ok := seen[*id]; ok {
			return
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	add(order.DiscountID)
	for _, item := range items {
		add(item.DiscountID)
	}
	return ids
}

func (s *service) loadTier(ctx context.Context, tx *gorm.DB, id uint64) (*models.DiscountTier, error) {
	tier, err := s.discounts.WithTx(tx).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount tier not found").
				WithDetails(map[string]any{"discount_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load discount tier")
	}
	return tier, nil
}

func (s *service) loadOrderDTO(ctx context.Context, orderRepo Repository, orderID uint64) (*OrderDTO, error) {
	order, err := orderRepo.FindOrderWithItems(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err, orderID)
	}
	dto := orderFromModel(*order)
	return &dto, nil
}

func loadOrder(ctx context.Context, orderRepo Repository, orderID uint64, forUpdate bool) (*models.Order, error) {
	order, err := orderRepo.FindOrder(ctx, orderID, forUpdate)
	if err != nil {
		return nil, mapOrderError(err, orderID)
	}
	return order, nil
}

func validatePercentage(pct *decimal.Decimal) error {
	if pct == nil {
		return nil
	}
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount percentage must be between 0 and 100").
			WithDetails(map[string]any{"percentage": pct.String()})
	}
	return nil
}

func rejectionsError(rejections []RowRejection) error {
	var combined error
	for _, rejection := range rejections {
		combined = multierr.Append(combined, fmt.Errorf("row %d: %s: %s", rejection.Row, rejection.Code, rejection.Reason))
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, combined, "invalid items").
		WithDetails(map[string]any{"rejected": rejections})
}

func invalidQuantity(quantity int) error {
	return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be greater than zero").
		WithDetails(map[string]any{"quantity": quantity})
}

func invalidState(order *models.Order) error {
	return pkgerrors.New(pkgerrors.CodeInvalidOrderState, "order is not editable").
		WithDetails(map[string]any{"order_id": order.ID, "status": order.Status})
}

func mapOrderError(err error, orderID uint64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found").
			WithDetails(map[string]any{"order_id": orderID})
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load order")
}

func mapItemError(err error, itemID uint64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeItemNotFound, "order item not found").
			WithDetails(map[string]any{"item_id": itemID})
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load order item")
}

func (s *service) track(op string, start time.Time, errp *error) {
	s.observer.ObserveDuration(op, time.Since(start))
	if *errp != nil {
		s.observer.IncFailure(op)
		return
	}
	s.observer.IncSuccess(op)
}

func (s *service) info(ctx context.Context, orderID uint64, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, orderID), fields), msg)
}

func (s *service) debug(ctx context.Context, orderID uint64, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Debug(s.logg.WithFields(s.logg.WithOrderID(ctx, orderID), fields), msg)
}

type noopObserver struct{}

func (noopObserver) ObserveDuration(string, time.Duration) {}
func (noopObserver) IncSuccess(string)                     {}
func (noopObserver) IncFailure(string)                     {}
func (noopObserver) ObserveLockWait(time.Duration)         {}
