// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains of the
// back-office API. Routes are split into public auth endpoints and the
// session-protected category API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"backoffice/internal/handlers"
	"backoffice/internal/middleware"
	"backoffice/internal/response"
)

// Deps are the collaborators the router wires into its routes.
type Deps struct {
	Sessions     middleware.SessionGetter
	Auth         *handlers.Auth
	Categories   *handlers.Categories
	LoginLimiter *middleware.RateLimiter
	CORSOrigins  []string
}

// New creates the API handler: a chi router with all middleware and route
// groups wired up, wrapped in the CORS layer.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(d.Sessions))

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(d.LoginLimiter.Middleware).Post("/login", d.Auth.Login)
			r.Post("/logout", d.Auth.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/2fa/setup", d.Auth.TwoFASetup)
				r.Post("/2fa/verify", d.Auth.TwoFAVerify)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/", d.Categories.List)
			r.Post("/", d.Categories.Create)
			r.Get("/tree", d.Categories.Tree)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/activity", d.Categories.Activity)
				r.Put("/order", d.Categories.Reorder)
			})

			r.Put("/{id}", d.Categories.Update)
			r.Delete("/{id}", d.Categories.Delete)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.ErrorWithMessage(w, http.StatusNotFound, "Route not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.ErrorWithMessage(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	c := cors.New(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	})
	return c.Handler(r)
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
