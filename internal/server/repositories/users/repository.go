package users

import (
	"context"

	"github.com/dmitrijs2005/blogapi/internal/server/models"
)

// Repository is the credential store adapter. Create relies on the store's
// unique email constraint: there is no exists-check operation on purpose,
// because check-then-insert races under concurrent signups.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
