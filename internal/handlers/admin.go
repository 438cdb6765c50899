package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
)

// Products at or below this stock show up as low stock on the dashboard.
const lowStockThreshold = 5

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	db        *gorm.DB
	discounts *services.DiscountService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, discounts *services.DiscountService) *AdminHandler {
	return &AdminHandler{db: db, discounts: discounts}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	var totalOrders int64
	if err := db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		return err
	}

	// Orders by status
	type statusCount struct {
		Status string
		Count  int64
	}
	var statusCounts []statusCount
	if err := db.Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return err
	}

	ordersByStatus := make(map[string]int64, len(models.OrderStatuses))
	for _, status := range models.OrderStatuses {
		ordersByStatus[status] = 0
	}
	for _, sc := range statusCounts {
		ordersByStatus[sc.Status] = sc.Count
	}

	// Revenue over non-cancelled orders: list-price and paid totals
	type revenue struct {
		Gross decimal.Decimal
		Net   decimal.Decimal
	}
	var total revenue
	if err := db.Model(&models.Order{}).
		Where("status <> ?", models.OrderStatusCancelled).
		Select("COALESCE(SUM(total_amount), 0) AS gross, COALESCE(SUM(discounted_total), 0) AS net").
		Scan(&total).Error; err != nil {
		return err
	}

	var today revenue
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	if err := db.Model(&models.Order{}).
		Where("status <> ? AND created_at >= ?", models.OrderStatusCancelled, startOfDay).
		Select("COALESCE(SUM(total_amount), 0) AS gross, COALESCE(SUM(discounted_total), 0) AS net").
		Scan(&today).Error; err != nil {
		return err
	}

	var lowStock []models.Product
	if err := db.Select("id", "name", "stock").
		Where("stock <= ?", lowStockThreshold).
		Order("stock asc").
		Limit(10).
		Find(&lowStock).Error; err != nil {
		return err
	}

	activeDiscounts, err := h.discounts.CountActive(c.UserContext())
	if err != nil {
		return err
	}

	low := make([]fiber.Map, 0, len(lowStock))
	for _, p := range lowStock {
		low = append(low, fiber.Map{"id": p.ID, "name": p.Name, "stock": p.Stock})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_users":        totalUsers,
			"total_orders":       totalOrders,
			"orders_by_status":   ordersByStatus,
			"total_revenue":      total.Net,
			"gross_revenue":      total.Gross,
			"today_revenue":      today.Net,
			"low_stock_products": low,
			"active_discounts":   activeDiscounts,
		},
	})
}

// ListAllUsers returns registered users with their order counts.
func (h *AdminHandler) ListAllUsers(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())
	pg := utils.ParsePagination(c)
	query := db.Model(&models.User{})

	if search := c.Query("search"); search != "" {
		q := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", q, q)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var users []models.User
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&users).Error; err != nil {
		return err
	}

	type userStats struct {
		UserID     string
		OrderCount int64
		TotalSpent decimal.Decimal
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID.String())
	}

	var stats []userStats
	if len(ids) > 0 {
		if err := db.Model(&models.Order{}).
			Select("user_id, count(*) as order_count, COALESCE(SUM(discounted_total), 0) as total_spent").
			Where("user_id IN ?", ids).
			Group("user_id").
			Scan(&stats).Error; err != nil {
			return err
		}
	}

	statsMap := make(map[string]userStats, len(stats))
	for _, s := range stats {
		statsMap[s.UserID] = s
	}

	type userResponse struct {
		models.User
		OrderCount int64           `json:"order_count"`
		TotalSpent decimal.Decimal `json:"total_spent"`
	}

	result := make([]userResponse, len(users))
	for i, u := range users {
		result[i] = userResponse{User: u, TotalSpent: decimal.Zero}
		if s, ok := statsMap[u.ID.String()]; ok {
			result[i].OrderCount = s.OrderCount
			result[i].TotalSpent = s.TotalSpent
		}
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       result,
		"pagination": pg.Meta(total),
	})
}

// RecentOrders returns the five most recent orders.
func (h *AdminHandler) RecentOrders(c *fiber.Ctx) error {
	var orders []models.Order
	if err := h.db.WithContext(c.UserContext()).
		Preload("Items").Preload("User").
		Order("created_at desc").
		Limit(5).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": orders})
}
