package http

import "github.com/labstack/echo/v4"

// Register mounts the loan routes on g, which must already authenticate the caller.
func (h *LoanHandler) Register(g *echo.Group) {
	g.POST("/loans", authed(h.Apply))
	g.GET("/loans/quote", authed(h.Quote))
	g.GET("/loans/:loan_id", authed(h.Get))
	g.POST("/loans/:loan_id/approve", authed(h.Approve))
	g.POST("/loans/:loan_id/reject", authed(h.Reject))
	g.POST("/loans/:loan_id/activate", authed(h.Activate))
	g.POST("/loans/:loan_id/schedule", authed(h.RegenerateSchedule))
	g.POST("/loans/:loan_id/default", authed(h.MarkDefaulted))
}

func (h *PaymentHandler) Register(g *echo.Group) {
	g.GET("/loans/:loan_id/payments", authed(h.List))
	g.POST("/loans/:loan_id/payments", authed(h.Record))
	g.POST("/loans/:loan_id/payments/submissions", authed(h.Submit))
	g.GET("/payments/upcoming", authed(h.Upcoming))
	g.GET("/payments/overdue", authed(h.Overdue))
	g.GET("/payments/awaiting-verification", authed(h.AwaitingVerification))
	g.POST("/payments/:payment_id/verify", authed(h.Verify))
	g.GET("/payments/:payment_id/proof", authed(h.Proof))
}
