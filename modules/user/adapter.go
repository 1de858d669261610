package user

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// UserPort is how other modules look users up.
type UserPort interface {
	// GetUser returns the user with id, or found=false when there is none.
	GetUser(ctx context.Context, id uint) (info *UserInfo, found bool, err error)
}

// userAdapter calls the user module's services through the service container.
type userAdapter struct {
	container mono.ServiceContainer
}

// NewUserAdapter creates a UserPort backed by the container received via
// SetDependencyServiceContainer.
func NewUserAdapter(container mono.ServiceContainer) UserPort {
	if container == nil {
		panic("user adapter requires non-nil ServiceContainer")
	}
	return &userAdapter{container: container}
}

func (a *userAdapter) GetUser(ctx context.Context, id uint) (*UserInfo, bool, error) {
	req := GetUserRequest{UserID: id}
	var resp GetUserResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-user",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, false, fmt.Errorf("get-user service call failed: %w", err)
	}
	return resp.User, resp.Found, nil
}
