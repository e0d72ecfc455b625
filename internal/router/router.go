// file: internal/router/router.go
package router

import (
	"net/http"

	"goldhub/internal/database"
	"goldhub/internal/handlers/api/v1/challenges"
	"goldhub/internal/handlers/api/v1/rewards"
	"goldhub/internal/handlers/api/v1/trades"
	custommw "goldhub/internal/middleware"
	"goldhub/internal/services"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Dependencies carries everything the router wires together.
type Dependencies struct {
	Achievements  services.AchievementService
	Trades        services.TradeService
	Notifications services.NotificationService
	ChallengeAdm  services.ChallengeAdminService
	Hub           *services.NotificationHub
	DB            *database.Manager
	JWTSecret     string
	Logger        *zap.Logger
}

// New builds the HTTP routing tree.
func New(deps *Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.Recovery(deps.Logger))
	r.Use(custommw.Logger(deps.Logger))
	r.Use(chimw.RealIP)
	r.Use(chimw.Compress(5))

	r.Get("/health", healthHandler(deps.DB))

	rewardsController := rewards.NewRewardsController(deps.Achievements, deps.Notifications, deps.Hub, deps.Logger)
	tradesController := trades.NewTradesController(deps.Trades, deps.Logger)
	challengesController := challenges.NewChallengesController(deps.ChallengeAdm, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(custommw.Auth(deps.JWTSecret, deps.Logger))

		r.Route("/rewards", func(r chi.Router) {
			r.Get("/", rewardsController.GetOverview)
			r.Post("/recompute", rewardsController.Recompute)
			r.Post("/challenges/{challengeID}/claim", rewardsController.ClaimReward)
		})

		r.Route("/trades", func(r chi.Router) {
			r.Get("/", tradesController.GetLedger)
			r.Post("/buy", tradesController.Buy)
			r.Post("/sell", tradesController.Sell)
			r.Post("/redeem", tradesController.Redeem)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", rewardsController.ListNotifications)
			r.Get("/ws", rewardsController.WebSocket)
			r.Post("/{notificationID}/read", rewardsController.MarkNotificationRead)
		})

		r.Route("/admin/challenges", func(r chi.Router) {
			r.Get("/", challengesController.List)
			r.Post("/", challengesController.Create)
			r.Put("/{challengeID}", challengesController.Update)
			r.Delete("/{challengeID}", challengesController.Delete)
		})
	})

	return r
}

func healthHandler(db *database.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Health(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
}
