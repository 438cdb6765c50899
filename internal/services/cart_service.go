package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/models"
)

// CartService mutates carts and moves product stock with every mutation.
// Each operation is a single transaction holding the cart row lock, and stock
// leaves a product only through a conditional decrement, so concurrent
// requests cannot overdraw it.
type CartService struct {
	db *gorm.DB
}

// NewCartService constructs a CartService.
func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// CartSummary is a cart with products inlined and computed totals.
type CartSummary struct {
	UserID             uuid.UUID         `json:"user_id"`
	Items              []models.CartItem `json:"items"`
	Subtotal           decimal.Decimal   `json:"subtotal"`
	DiscountedSubtotal decimal.Decimal   `json:"discounted_subtotal"`
}

// AddItem puts quantity units of a product into the user's cart, creating
// the cart on first use.
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (summary *CartSummary, err error) {
	ctx, span := startSpan(ctx, "CartService.AddItem")
	defer endSpan(span, &err)

	if quantity < 1 {
		return nil, validationf("quantity must be at least 1")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, userID); err != nil {
			return err
		}

		var product models.Product
		if err := tx.First(&product, "id = ?", productID).Error; err != nil {
			return lookup(err, "product")
		}
		if product.Stock < quantity {
			return withDetail(ErrInsufficientStock, fmt.Sprintf("only %d of %s left", product.Stock, product.Name))
		}

		cart, err := lockCart(tx, userID, true)
		if err != nil {
			return err
		}

		if line := findLine(cart, productID); line != nil {
			if err := tx.Model(line).Update("quantity", line.Quantity+quantity).Error; err != nil {
				return err
			}
		} else {
			item := models.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  quantity,
				Position:  nextPosition(cart),
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}

		return takeStock(tx, productID, quantity)
	})
	if err != nil {
		return nil, err
	}

	return s.summary(ctx, userID)
}

// RemoveItem drops a product line from the cart and returns its quantity to
// stock.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (summary *CartSummary, err error) {
	ctx, span := startSpan(ctx, "CartService.RemoveItem")
	defer endSpan(span, &err)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockCart(tx, userID, false)
		if err != nil {
			return err
		}

		line := findLine(cart, productID)
		if line == nil {
			return notFound("cart item")
		}

		if err := tx.Delete(&models.CartItem{}, "id = ?", line.ID).Error; err != nil {
			return err
		}
		return returnStock(tx, productID, line.Quantity)
	})
	if err != nil {
		return nil, err
	}

	return s.summary(ctx, userID)
}

// UpdateQuantity sets a line to newQuantity and moves the difference between
// cart and stock.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, newQuantity int) (summary *CartSummary, err error) {
	ctx, span := startSpan(ctx, "CartService.UpdateQuantity")
	defer endSpan(span, &err)

	if newQuantity < 1 {
		return nil, validationf("quantity must be at least 1")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockCart(tx, userID, false)
		if err != nil {
			return err
		}

		line := findLine(cart, productID)
		if line == nil {
			return notFound("cart item")
		}

		delta := newQuantity - line.Quantity
		switch {
		case delta > 0:
			if err := takeStock(tx, productID, delta); err != nil {
				return err
			}
		case delta < 0:
			if err := returnStock(tx, productID, -delta); err != nil {
				return err
			}
		default:
			return nil
		}

		return tx.Model(line).Update("quantity", newQuantity).Error
	})
	if err != nil {
		return nil, err
	}

	return s.summary(ctx, userID)
}

// Clear deletes the user's cart. Reserved stock is not returned.
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "CartService.Clear")
	defer endSpan(span, &err)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockCart(tx, userID, false)
		if err != nil {
			return err
		}
		return deleteCart(tx, cart.ID)
	})
}

// History returns the user's cart lines with product details. A user without
// a cart gets an empty summary.
func (s *CartService) History(ctx context.Context, userID uuid.UUID) (*CartSummary, error) {
	if err := ensureUser(s.db.WithContext(ctx), userID); err != nil {
		return nil, err
	}
	return s.summary(ctx, userID)
}

func (s *CartService) summary(ctx context.Context, userID uuid.UUID) (*CartSummary, error) {
	db := s.db.WithContext(ctx)
	out := &CartSummary{
		UserID:             userID,
		Items:              []models.CartItem{},
		Subtotal:           decimal.Zero,
		DiscountedSubtotal: decimal.Zero,
	}

	var cart models.Cart
	err := db.Where("user_id = ?", userID).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("position asc") }).
		Preload("Items.Product").
		Take(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(cart.Items))
	for _, item := range cart.Items {
		if item.Product != nil {
			products = append(products, *item.Product)
		}
	}
	if err := decorate(db, products); err != nil {
		return nil, err
	}
	decorated := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		decorated[p.ID] = p
	}

	for i := range cart.Items {
		item := &cart.Items[i]
		p, ok := decorated[item.ProductID]
		if !ok {
			continue
		}
		item.Product = &p
		qty := decimal.NewFromInt(int64(item.Quantity))
		out.Subtotal = out.Subtotal.Add(p.Price.Mul(qty))
		unit := p.Price
		if p.DiscountedPrice != nil {
			unit = *p.DiscountedPrice
		}
		out.DiscountedSubtotal = out.DiscountedSubtotal.Add(unit.Mul(qty))
	}
	out.Items = cart.Items

	return out, nil
}

// lockCart loads the user's cart and its lines under a row lock. With create
// set, a missing cart is created first.
func lockCart(tx *gorm.DB, userID uuid.UUID, create bool) (*models.Cart, error) {
	if create {
		fresh := models.Cart{UserID: userID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&fresh).Error; err != nil {
			return nil, err
		}
	}

	var cart models.Cart
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Take(&cart).Error; err != nil {
		return nil, lookup(err, "cart")
	}

	if err := tx.Where("cart_id = ?", cart.ID).Order("position asc").Find(&cart.Items).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func deleteCart(tx *gorm.DB, cartID uuid.UUID) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Cart{}, "id = ?", cartID).Error
}

func findLine(cart *models.Cart, productID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			return &cart.Items[i]
		}
	}
	return nil
}

func nextPosition(cart *models.Cart) int {
	next := 0
	for _, item := range cart.Items {
		if item.Position >= next {
			next = item.Position + 1
		}
	}
	return next
}

// takeStock decrements stock only when enough remains.
func takeStock(tx *gorm.DB, productID uuid.UUID, n int) error {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, n).
		Update("stock", gorm.Expr("stock - ?", n))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// returnStock puts units back. A product deleted in the meantime is skipped.
func returnStock(tx *gorm.DB, productID uuid.UUID, n int) error {
	return tx.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", n)).Error
}

func ensureUser(tx *gorm.DB, userID uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound("user")
	}
	return nil
}
