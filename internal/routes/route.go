package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"areas-bknd/internal/auth"
	"areas-bknd/internal/config"
	"areas-bknd/internal/editor"
	"areas-bknd/internal/handlers"
	"areas-bknd/internal/logger"
	mdlwr "areas-bknd/internal/middleware"
	"areas-bknd/internal/services"
)

func NewRouter(db *bun.DB, cfg *config.Config, logr *logger.Logger) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// CORS middleware with config
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTIssuer)
	if err != nil {
		logr.Fatal("failed to init jwt manager", zap.Error(err))
	}

	authSvc := services.NewAuthService(db, jwtMgr, cfg, logr)
	areaSvc := services.NewServiceAreaService(db)
	catalogSvc := services.NewServiceService(db)
	gateway := services.NewGateway(areaSvc, catalogSvc)
	editorMgr := editor.NewManager(gateway, logr.Logger)

	authMW := mdlwr.NewAuthMiddleware(jwtMgr.PublicKey(), authSvc, logr.Logger)

	authHandler := handlers.NewAuthHandler(authSvc, logr, cfg)
	serviceHandler := handlers.NewServiceHandler(catalogSvc, logr.Logger)
	areaHandler := handlers.NewServiceAreaHandler(areaSvc, catalogSvc, logr.Logger)
	editorHandler := handlers.NewEditorHandler(editorMgr, logr.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("ok"))
		if err != nil {
			return
		}
	})

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			// Public routes
			r.Post("/login", authHandler.LoginLocal)
			r.Post("/ldap", authHandler.LoginLDAP)

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(authMW.JWTAuth)
				r.Post("/refresh", authHandler.Refresh)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/categories", serviceHandler.GetCategories)

			r.Group(func(r chi.Router) {
				r.Use(authMW.JWTAuth)
				r.Get("/", serviceHandler.GetServices)
				r.Post("/", serviceHandler.CreateService)
				r.Delete("/{id}", serviceHandler.DeleteService)
			})
		})

		r.Route("/service-areas", func(r chi.Router) {
			// consumer-facing lookup, no session
			r.Get("/lookup", areaHandler.Lookup)

			r.Group(func(r chi.Router) {
				r.Use(authMW.JWTAuth)
				r.Get("/", areaHandler.GetServiceAreas)
				r.Post("/", areaHandler.CreateServiceArea)
				r.Get("/{id}", areaHandler.GetServiceAreaByID)
				r.Put("/{id}", areaHandler.UpdateServiceArea)
				r.Delete("/{id}", areaHandler.DeleteServiceArea)
			})
		})

		r.Route("/editor", func(r chi.Router) {
			r.Use(authMW.JWTAuth)
			r.Get("/state", editorHandler.GetState)
			r.Post("/draw", editorHandler.StartDrawing)
			r.Post("/select/{id}", editorHandler.Select)
			r.Post("/clear-selection", editorHandler.ClearSelection)
			r.Post("/edit", editorHandler.BeginEdit)
			r.Post("/shapes", editorHandler.SetShapes)
			r.Post("/service", editorHandler.SetService)
			r.Post("/active", editorHandler.SetActive)
			r.Post("/save", editorHandler.Save)
			r.Post("/delete", editorHandler.Delete)
			r.Post("/cancel", editorHandler.Cancel)
		})

	})

	return r
}
