package router

import (
	"net/http"
	"vh-recruit-api/handler"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "vh-recruit-api/docs"
)

func NewRouter(authHandler *handler.AuthHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)

	mux.Handle("POST /auth/login", handler.ErrorHandlingMiddleware(authHandler.Login))
	mux.Handle("POST /auth/verify-otp", handler.ErrorHandlingMiddleware(authHandler.VerifyOTP))
	mux.Handle("POST /auth/refresh", handler.ErrorHandlingMiddleware(authHandler.Refresh))
	mux.Handle("POST /auth/logout", handler.ErrorHandlingMiddleware(authHandler.Logout))

	mux.Handle("GET /api/me",
		handler.AuthMiddleware(handler.ErrorHandlingMiddleware(authHandler.Me)))
	mux.Handle("POST /api/admin/accounts",
		handler.AuthMiddleware(handler.PrivilegedMiddleware(handler.ErrorHandlingMiddleware(authHandler.ProvisionAccount))))

	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
