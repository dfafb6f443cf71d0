package httpserver

import (
	"context"
	"net/http"

	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	Auth       *AuthHTTP
	Catalog    *CatalogHTTP
	Cart       *CartHTTP
	Orders     *OrderHTTP
	Account    *AccountHTTP
	Newsletter *NewsletterHTTP
	Admin      *AdminHTTP

	JWTSecret    []byte
	CookieSecure bool
	// CSRF is nil when double-submit protection is off.
	CSRF *csrf.Config
	// Ready backs /health/ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := authmw.NewAutoRefreshMiddleware(d.JWTSecret, d.Auth.RefreshFunc(), d.CookieSecure)

	v1 := e.Group("/api/v1", authMW.Identify(), authmw.CartSession(d.CookieSecure))
	if d.CSRF != nil {
		v1.Use(csrf.Middleware(*d.CSRF))
	}

	auth := v1.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.LogOut)
	auth.GET("/verify/:token", d.Auth.VerifyEmail)
	auth.POST("/verify/resend", d.Auth.ResendVerification)

	v1.GET("/home", d.Catalog.Home)
	v1.GET("/search", d.Catalog.SearchProducts)
	v1.GET("/sales/:id/products", d.Catalog.GetSaleProducts)

	products := v1.Group("/products")
	products.GET("", d.Catalog.GetProducts)
	products.GET("/:slug", d.Catalog.GetProduct)
	products.GET("/:slug/reviews", d.Catalog.GetProductReviews)
	products.POST("/:slug/reviews", d.Catalog.SubmitReview, authmw.RequireAuth)

	v1.GET("/categories", d.Catalog.GetCategories)
	v1.GET("/categories/:slug/products", d.Catalog.GetCategoryProducts)

	cart := v1.Group("/cart")
	cart.GET("", d.Cart.GetCart)
	cart.DELETE("", d.Cart.Clear)
	cart.GET("/count", d.Cart.Count)
	cart.POST("/items", d.Cart.AddToCart)
	cart.PATCH("/items/:product_id", d.Cart.UpdateItem)
	cart.DELETE("/items/:product_id", d.Cart.RemoveItem)

	news := v1.Group("/newsletter")
	news.POST("/subscribe", d.Newsletter.Subscribe)
	news.GET("/confirm/:token", d.Newsletter.Confirm)
	news.GET("/unsubscribe/:token", d.Newsletter.Unsubscribe)

	checkout := v1.Group("/checkout", authmw.RequireAuth)
	checkout.POST("", d.Orders.MakeOrder)
	checkout.GET("/success/:id", d.Orders.Success)

	orders := v1.Group("/orders", authmw.RequireAuth)
	orders.GET("", d.Orders.ListMine)
	orders.GET("/:id", d.Orders.GetMine)
	orders.POST("/:id/cancel", d.Orders.Cancel)

	v1.DELETE("/reviews/:id", d.Account.DeleteReview, authmw.RequireAuth)

	profile := v1.Group("/profile", authmw.RequireAuth)
	profile.GET("", d.Account.GetProfile)
	profile.PATCH("", d.Account.UpdateProfile)
	profile.PUT("/password", d.Auth.ChangePassword)
	profile.GET("/reviews", d.Account.MyReviews)
	profile.GET("/reviewable", d.Account.Reviewable)

	payments := v1.Group("/payment-methods", authmw.RequireAuth)
	payments.GET("", d.Account.ListPaymentMethods)
	payments.POST("", d.Account.CreatePaymentMethod)
	payments.PUT("/:id", d.Account.UpdatePaymentMethod)
	payments.DELETE("/:id", d.Account.DeletePaymentMethod)

	admin := v1.Group("/admin", authmw.RequireAdmin)
	admin.GET("/dashboard", d.Admin.GetDashboard)

	admin.GET("/products", d.Admin.ListProducts)
	admin.POST("/products", d.Admin.CreateProduct)
	admin.GET("/products/:id", d.Admin.GetProduct)
	admin.PATCH("/products/:id", d.Admin.PatchProduct)
	admin.DELETE("/products/:id", d.Admin.DeleteProduct)
	admin.POST("/products/:id/reindex", d.Admin.ReindexProduct)

	admin.GET("/categories", d.Admin.ListCategories)
	admin.POST("/categories", d.Admin.CreateCategory)
	admin.GET("/categories/:id", d.Admin.GetCategory)
	admin.PUT("/categories/:id", d.Admin.UpdateCategory)
	admin.DELETE("/categories/:id", d.Admin.DeleteCategory)

	admin.GET("/orders", d.Admin.ListOrders)
	admin.GET("/orders/:id", d.Admin.GetOrder)
	admin.PATCH("/orders/:id/status", d.Admin.UpdateOrderStatus)
	admin.PATCH("/orders/:id/paid", d.Admin.UpdateOrderPaid)

	admin.GET("/carts/:id", d.Admin.GetCart)
	admin.DELETE("/carts/:id", d.Admin.DeleteCart)
	admin.PATCH("/carts/items/:item_id", d.Admin.UpdateCartItem)
	admin.DELETE("/carts/items/:item_id", d.Admin.DeleteCartItem)

	admin.GET("/reviews", d.Admin.ListReviews)
	admin.POST("/reviews", d.Admin.CreateReview)
	admin.PUT("/reviews/:id", d.Admin.UpdateReview)
	admin.DELETE("/reviews/:id", d.Admin.DeleteReview)

	admin.GET("/sales", d.Admin.ListSales)
	admin.POST("/sales", d.Admin.CreateSale)
	admin.GET("/sales/products", d.Admin.SaleProductPicker)
	admin.POST("/sales/apply", d.Admin.ApplySales)
	admin.GET("/sales/:id", d.Admin.GetSale)
	admin.PUT("/sales/:id", d.Admin.UpdateSale)
	admin.DELETE("/sales/:id", d.Admin.DeleteSale)

	admin.GET("/reports/sale/:id", d.Admin.SaleReport)
	admin.GET("/reports/generate", d.Admin.GenerateReport)

	admin.GET("/settings", d.Admin.GetSettings)
	admin.PATCH("/settings", d.Admin.UpdateSettings)
	admin.POST("/settings/revert", d.Admin.RevertSettings)

	admin.GET("/subscriptions", d.Admin.ListSubscriptions)
	admin.POST("/subscriptions/:id/unsubscribe", d.Admin.Unsubscribe)
}
