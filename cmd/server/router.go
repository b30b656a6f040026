package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/phrazzld/apitask/internal/api"
	authmiddleware "github.com/phrazzld/apitask/internal/api/middleware"
	"github.com/phrazzld/apitask/internal/domain"
)

// setupRouter creates the chi router with every route and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(authmiddleware.NewTraceMiddleware(app.logger))

	paging := api.PagingConfig{
		DefaultSize: app.config.Tasks.DefaultPageSize,
		MaxSize:     app.config.Tasks.MaxPageSize,
	}

	authMiddleware := authmiddleware.NewAuthMiddleware(app.jwtService, app.logger)
	authHandler := api.NewAuthHandler(app.userService, app.jwtService, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, paging, app.config.Tasks.RetentionDays, app.logger)
	userHandler := api.NewUserHandler(app.userService, paging, app.logger)
	categoryHandler := api.NewCategoryHandler(app.categoryService)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/categories", categoryHandler.ListCategories)

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", taskHandler.CreateTask)
				r.Get("/", taskHandler.ListAll)
				r.Get("/due", taskHandler.ListDue)
				r.Get("/pending", taskHandler.ListPending)
				r.Get("/completed", taskHandler.ListCompleted)
				r.Delete("/completed", taskHandler.PurgeCompleted)
				r.Get("/{id}", taskHandler.GetTask)
				r.Delete("/{id}", taskHandler.DeleteTask)
				r.Patch("/{id}/complete", taskHandler.CompleteTask)
			})

			r.Get("/users/me/sequence", userHandler.GetSequence)

			r.Route("/admin", func(r chi.Router) {
				r.Use(authmiddleware.RequireRole(domain.RoleAdmin))
				r.Get("/users", userHandler.ListUsers)
				r.Delete("/users/{id}", userHandler.DeleteUser)
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return corsHandler(app.config.Server.CORSAllowedOrigins).Handler(r)
}

// corsHandler allows browser clients from origins. An empty list keeps the
// rs/cors default of allowing every origin.
func corsHandler(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Trace-ID"},
		AllowCredentials: true,
	})
}
