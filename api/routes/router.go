package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cody-community/cody-backend/api/controllers"
	"github.com/cody-community/cody-backend/api/middleware"
	"github.com/cody-community/cody-backend/internal/ledger"
	"github.com/cody-community/cody-backend/internal/members"
	"github.com/cody-community/cody-backend/internal/mentorship"
	"github.com/cody-community/cody-backend/internal/onboarding"
	"github.com/cody-community/cody-backend/internal/profile"
	"github.com/cody-community/cody-backend/pkg/config"
	"github.com/cody-community/cody-backend/pkg/logger"
	"github.com/cody-community/cody-backend/pkg/metrics"
)

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Members    members.Service
	Mentorship mentorship.Service
	Onboarding onboarding.Service
	Profile    profile.Service
	Ledger     ledger.Service
}

// Dependencies are the probes and registries shared by the infrastructure routes.
type Dependencies struct {
	Readiness []controllers.ReadinessCheck
	// Gatherer backs /metrics; nil falls back to the default registry.
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTP),
		middleware.Recoverer(logg, deps.HTTP),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness...))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ServiceAuth(cfg.JWT, cfg.Discord.GuildID, logg))
		r.Get("/ping", controllers.PrivatePing())

		r.Route("/members/{memberId}", func(r chi.Router) {
			r.Post("/display-name", controllers.SetDisplayName(svc.Members, svc.Onboarding, logg))
			r.Post("/age-verification", controllers.MarkAgeVerified(svc.Members, svc.Onboarding, logg))
			r.Post("/rejoin", controllers.MemberRejoined(svc.Onboarding, logg))

			r.Get("/onboarding", controllers.GetOnboarding(svc.Onboarding, logg))
			r.Post("/onboarding/complete", controllers.CompleteOnboarding(svc.Onboarding, logg))

			r.Route("/mentor", func(r chi.Router) {
				r.Get("/", controllers.GetMentorDecision(svc.Mentorship, logg))
				r.Post("/", controllers.DecideMentor(svc.Mentorship, svc.Onboarding, logg))
				r.Post("/skip", controllers.SkipMentor(svc.Mentorship, svc.Onboarding, logg))
			})

			r.Post("/rank", controllers.AdvanceRank(svc.Onboarding, logg))
			r.Post("/rank-roles/reconcile", controllers.ReconcileRankRoles(svc.Onboarding, logg))
			r.Get("/profile", controllers.GetProfile(svc.Profile, logg))
			r.Get("/rewards", controllers.ListRewards(svc.Ledger, logg))
		})
	})

	return r
}
