package services

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/utils"
)

// CheckoutService turns carts into orders and manages order status.
type CheckoutService struct {
	db *gorm.DB
}

// NewCheckoutService constructs a CheckoutService.
func NewCheckoutService(db *gorm.DB) *CheckoutService {
	return &CheckoutService{db: db}
}

// CreateOrderInput carries the delivery and payment details of a checkout.
type CreateOrderInput struct {
	Address     string `json:"address" validate:"required,max=500"`
	Phone       string `json:"phone" validate:"required,max=32"`
	PaymentType string `json:"payment_type" validate:"required,max=64"`
}

// OrderFilter narrows ListAll. A zero Page means the first page of the
// default size.
type OrderFilter struct {
	Status string
	Page   utils.Pagination
}

// CreateOrder snapshots the user's cart into an order and deletes the cart in
// one transaction. TotalAmount is the list-price sum; each line records the
// discount live at purchase time.
func (s *CheckoutService) CreateOrder(ctx context.Context, userID uuid.UUID, in CreateOrderInput) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "CheckoutService.CreateOrder")
	defer endSpan(span, &err)

	in.Address = strings.TrimSpace(in.Address)
	in.Phone = strings.TrimSpace(in.Phone)
	in.PaymentType = strings.TrimSpace(in.PaymentType)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var created models.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, userID); err != nil {
			return err
		}

		cart, err := lockCart(tx, userID, false)
		if errors.Is(err, ErrNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		ids := make([]uuid.UUID, 0, len(cart.Items))
		for _, item := range cart.Items {
			ids = append(ids, item.ProductID)
		}

		var products []models.Product
		if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		discounts, err := liveDiscounts(tx, ids, now())
		if err != nil {
			return err
		}

		created = models.Order{
			UserID:          userID,
			Address:         in.Address,
			Phone:           in.Phone,
			PaymentType:     in.PaymentType,
			Status:          models.OrderStatusPending,
			TotalAmount:     decimal.Zero,
			DiscountedTotal: decimal.Zero,
		}

		for _, item := range cart.Items {
			product, ok := byID[item.ProductID]
			if !ok {
				return notFound("product in cart")
			}

			qty := decimal.NewFromInt(int64(item.Quantity))
			line := models.OrderItem{
				ProductID:           product.ID,
				ProductName:         product.Name,
				Quantity:            item.Quantity,
				UnitPrice:           product.Price,
				DiscountPercent:     decimal.Zero,
				UnitPriceAtPurchase: product.Price,
			}
			if d, ok := discounts[product.ID]; ok {
				line.DiscountPercent = d.Percentage
				line.UnitPriceAtPurchase = DiscountedPrice(product.Price, d.Percentage)
			}
			line.LineTotal = line.UnitPriceAtPurchase.Mul(qty)

			created.TotalAmount = created.TotalAmount.Add(product.Price.Mul(qty))
			created.DiscountedTotal = created.DiscountedTotal.Add(line.LineTotal)
			created.Items = append(created.Items, line)
		}

		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		if err := deleteCart(tx, cart.ID); err != nil {
			return err
		}

		return enqueue(tx, events.RKOrderCreated, orderCreatedEvent(&created))
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, created.ID)
}

// History lists the user's orders, newest first.
func (s *CheckoutService) History(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	db := s.db.WithContext(ctx)
	if err := ensureUser(db, userID); err != nil {
		return nil, err
	}

	var orders []models.Order
	if err := db.Where("user_id = ?", userID).
		Preload("Items.Product").
		Order("created_at desc").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListAll returns every order with user and product details.
func (s *CheckoutService) ListAll(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := utils.NewPagination(filter.Page.Page, filter.Page.Limit)
	var orders []models.Order
	if err := query.Preload("User").Preload("Items.Product").
		Order("created_at desc").
		Limit(page.Limit).Offset(page.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// GetByID loads one order with user and product details.
func (s *CheckoutService) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Items.Product").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, lookup(err, "order")
	}
	return &order, nil
}

// UpdateStatus sets any valid status regardless of the current one.
func (s *CheckoutService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "CheckoutService.UpdateStatus")
	defer endSpan(span, &err)

	status = strings.TrimSpace(status)
	if !slices.Contains(models.OrderStatuses, status) {
		return nil, validationf("status must be one of: %s", strings.Join(models.OrderStatuses, ", "))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, "id = ?", id).Error; err != nil {
			return lookup(err, "order")
		}
		return setOrderStatus(tx, &current, status)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// setOrderStatus persists a status change and records it in the outbox.
func setOrderStatus(tx *gorm.DB, order *models.Order, status string) error {
	from := order.Status
	if from == status {
		return nil
	}

	if err := tx.Model(order).Update("status", status).Error; err != nil {
		return err
	}

	return enqueue(tx, events.RKOrderStatusChanged, events.OrderStatusChanged{
		OrderID: order.ID.String(),
		UserID:  order.UserID.String(),
		From:    from,
		To:      status,
	})
}

func orderCreatedEvent(order *models.Order) events.OrderCreated {
	ev := events.OrderCreated{
		OrderID:         order.ID.String(),
		UserID:          order.UserID.String(),
		TotalAmount:     order.TotalAmount,
		DiscountedTotal: order.DiscountedTotal,
		PaymentType:     order.PaymentType,
		Address:         order.Address,
		Phone:           order.Phone,
		PlacedAt:        order.CreatedAt,
	}
	for _, item := range order.Items {
		ev.Items = append(ev.Items, events.OrderLine{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPriceAtPurchase,
		})
	}
	return ev
}
