package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, uploader services.ImageUploader) {
	authService := services.NewAuthService(db, uploader, cfg.JWTSecret, cfg.TokenExpires)

	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(authService)
	productHandler := handlers.NewProductHandler(services.NewProductService(db, uploader))
	cartHandler := handlers.NewCartHandler(services.NewCartService(db))
	checkoutHandler := handlers.NewCheckoutHandler(services.NewCheckoutService(db))
	discountService := services.NewDiscountService(db)
	discountHandler := handlers.NewDiscountHandler(discountService)
	reviewHandler := handlers.NewReviewHandler(services.NewReviewService(db))
	adminHandler := handlers.NewAdminHandler(db, discountService)

	authenticated := middleware.AuthMiddleware(cfg.JWTSecret)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/savetoken", authenticated, authHandler.SaveToken)
	auth.Get("/profile/:id", authenticated, middleware.SelfOrAdmin("id"), profileHandler.GetProfile)
	auth.Put("/profile/:id", authenticated, middleware.SelfOrAdmin("id"), profileHandler.UpdateProfile)

	// Products
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Post("/add", authenticated, adminOnly, productHandler.CreateProduct)
	products.Post("/import", authenticated, adminOnly, productHandler.ImportProducts)
	products.Put("/update/:id", authenticated, adminOnly, productHandler.UpdateProduct)
	products.Put("/update-stock/:id", authenticated, adminOnly, productHandler.UpdateStock)
	products.Delete("/delete/:id", authenticated, adminOnly, productHandler.DeleteProduct)
	products.Get("/:id", productHandler.GetProduct)

	// Cart
	cart := api.Group("/cart", authenticated)
	cart.Post("/add", cartHandler.AddItem)
	cart.Delete("/remove/:userId/:productId", middleware.SelfOrAdmin("userId"), cartHandler.RemoveItem)
	cart.Delete("/clear/:userId", middleware.SelfOrAdmin("userId"), cartHandler.Clear)
	cart.Get("/history/:userId", middleware.SelfOrAdmin("userId"), cartHandler.History)
	cart.Put("/update/:userId/:productId", middleware.SelfOrAdmin("userId"), cartHandler.UpdateQuantity)

	// Checkout
	checkout := api.Group("/checkout", authenticated)
	checkout.Post("/checkout", checkoutHandler.CreateOrder)
	checkout.Get("/history/:userId", middleware.SelfOrAdmin("userId"), checkoutHandler.History)
	checkout.Get("/all", adminOnly, checkoutHandler.ListAll)
	checkout.Get("/:id", checkoutHandler.GetOrder)
	checkout.Put("/:id", adminOnly, checkoutHandler.UpdateStatus)

	// Discounts
	discounts := api.Group("/discounts")
	discounts.Get("/", discountHandler.List)
	discounts.Get("/active/now", discountHandler.ActiveNow)
	discounts.Post("/create", authenticated, adminOnly, discountHandler.Create)
	discounts.Get("/:id", discountHandler.Get)
	discounts.Patch("/:id", authenticated, adminOnly, discountHandler.Update)
	discounts.Delete("/:id", authenticated, adminOnly, discountHandler.Delete)

	// Reviews
	reviews := api.Group("/reviews")
	reviews.Get("/", reviewHandler.List)
	reviews.Get("/user/:userId", reviewHandler.ListByUser)
	reviews.Get("/product/:productId", reviewHandler.ListByProduct)
	reviews.Post("/", authenticated, reviewHandler.Submit)
	reviews.Put("/:reviewId", authenticated, reviewHandler.Update)
	reviews.Delete("/:reviewId", authenticated, reviewHandler.Delete)

	// Admin dashboard
	admin := api.Group("/admin", authenticated, adminOnly)
	admin.Get("/stats", adminHandler.DashboardStats)
	admin.Get("/users", adminHandler.ListAllUsers)
	admin.Get("/orders/recent", adminHandler.RecentOrders)
}
