package handlers

import (
	"net/http"

	_ "github.com/kstolbov/pointsledger/docs"
	authhandlers "github.com/kstolbov/pointsledger/internal/handlers/auth"
	loyaltyhandlers "github.com/kstolbov/pointsledger/internal/handlers/loyalty"
	"github.com/kstolbov/pointsledger/internal/service"
	"github.com/kstolbov/pointsledger/pkg/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type LoyaltyHandler interface {
	GetBalance(w http.ResponseWriter, r *http.Request)
	Spend(w http.ResponseWriter, r *http.Request)
	Earn(w http.ResponseWriter, r *http.Request)
	GetHistory(w http.ResponseWriter, r *http.Request)
	GetLeaderboard(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	AuthHandler    AuthHandler
	LoyaltyHandler LoyaltyHandler

	jwtService auth.JWTServiceInterface
}

func New(s *service.Services, jwtService auth.JWTServiceInterface) *Handlers {
	return &Handlers{
		AuthHandler:    authhandlers.New(s.AuthService),
		LoyaltyHandler: loyaltyhandlers.New(s.LedgerService),
		jwtService:     jwtService,
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))
	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.AuthHandler.Register)
		r.Post("/login", h.AuthHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware(h.jwtService))
			r.Route("/loyalty", func(r chi.Router) {
				r.Get("/balance", h.LoyaltyHandler.GetBalance)
				r.Post("/spend", h.LoyaltyHandler.Spend)
				r.Post("/earn", h.LoyaltyHandler.Earn)
				r.Get("/history", h.LoyaltyHandler.GetHistory)
				r.Get("/leaderboard", h.LoyaltyHandler.GetLeaderboard)
			})
		})
	})

	return r
}
