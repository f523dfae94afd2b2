package repository

import "context"

// ProjectRepository resolves project membership for project-scoped
// notification fan-out. Project CRUD lives in another service; the core only
// needs the member lookup.
type ProjectRepository interface {
	GetMembers(ctx context.Context, projectID string) ([]string, error)
}
