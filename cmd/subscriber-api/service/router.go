// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/middleware"
)

// NewRouter mounts the probes and the authenticated API routes.
func NewRouter(api *SubscriberAPI, authenticator port.Authenticator) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLoggerMiddleware())

	r.Get("/livez", api.Livez)
	r.Get("/readyz", api.Readyz)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(authenticator))
		r.Use(middleware.BodyLimitMiddleware(middleware.DefaultBodyLimit))

		r.Route("/ml/{"+PathParamMailingList+"}", func(r chi.Router) {
			r.Get("/subscribers", api.GetSubscribers)
			r.Post("/subscribers", api.UpdateSubscribers)
			r.Get("/has_subscriber/{"+PathParamSubscriber+"}", api.HasSubscriber)
		})

		r.Route("/subscriber/{"+PathParamSubscriber+"}", func(r chi.Router) {
			r.Get("/subscribed", api.SubscribedLists)
			r.Post("/subscribe", api.Subscribe)
		})
	})

	return r
}
