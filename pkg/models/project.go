package models

import (
	"time"

	"github.com/google/uuid"
)

// Project groups datasets and jobs. Members with the editor role may submit,
// cancel and delete jobs in the project.
type Project struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	OwnerID   uuid.UUID `db:"owner_id"   json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Project member roles.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
)

// ProjectMember grants a user a role on a project.
type ProjectMember struct {
	ProjectID uuid.UUID `db:"project_id" json:"project_id"`
	UserID    uuid.UUID `db:"user_id"    json:"user_id"`
	Role      string    `db:"role"       json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
