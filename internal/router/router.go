package router

import (
	"github.com/fasthttp/router"

	apiHandler "github.com/taskpulse/backend/api/handler"
)

type Handlers struct {
	Health *apiHandler.HealthHandler
	Search *apiHandler.SearchHandler
}

// New wires the worker's routes: the operational endpoints plus cached task
// search, which this core owns. Task and user CRUD belong to the services in
// front of it and are deliberately absent here.
func New(handlers Handlers) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)
	r.GET("/status", handlers.Health.Status)
	r.GET("/api/v1/tasks/search", handlers.Search.Search)

	return r
}
