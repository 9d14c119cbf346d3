package httpapi

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, app *App) {
	r.Get("/healthz", healthHandler)
	r.Post("/cron-retry", app.cronRetryHandler)
	r.Post("/process-queue", app.processQueueHandler)
	r.Post("/sync-dropbox", app.syncDropboxHandler)
	r.Post("/cleanup-storage", app.cleanupStorageHandler)
	r.Post("/sync-queue", app.enqueueHandler)
	r.Get("/sync-queue", app.listQueueHandler)
}
