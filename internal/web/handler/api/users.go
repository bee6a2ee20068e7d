package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/db/models"
	"github.com/go-secadmin/go-secadmin/internal/security"
	authmw "github.com/go-secadmin/go-secadmin/internal/web/middleware/auth"
)

type userResponse struct {
	ID             uint64     `json:"id"`
	Active         bool       `json:"active"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Roles          []string   `json:"roles"`
	LoginCount     int        `json:"login_count"`
	FailLoginCount int        `json:"fail_login_count"`
	LastLogin      *time.Time `json:"last_login"`
	CreatedOn      time.Time  `json:"created_on"`
}

func toUserResponse(user *models.User) userResponse {
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, role.Name)
	}

	return userResponse{
		ID:             user.ID,
		Active:         user.Active,
		Username:       user.Username,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Roles:          roles,
		LoginCount:     user.LoginCount,
		FailLoginCount: user.FailLoginCount,
		LastLogin:      user.LastLogin,
		CreatedOn:      user.CreatedOn,
	}
}

type createUserRequest struct {
	Username  string   `json:"username" validate:"required,max=64"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=8"`
	FirstName string   `json:"first_name" validate:"max=64"`
	LastName  string   `json:"last_name" validate:"max=64"`
	Roles     []string `json:"roles"`
}

type updateUserRequest struct {
	Email     *string  `json:"email" validate:"omitempty,email"`
	FirstName *string  `json:"first_name"`
	LastName  *string  `json:"last_name"`
	Active    *bool    `json:"active"`
	Roles     []string `json:"roles"`
}

// ListUsers returns a page of users.
func (s *Service) ListUsers(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	users, total, err := s.store.GetAllUsers(limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")
		return fiber.ErrInternalServerError
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}

	return c.JSON(fiber.Map{"count": total, "result": out})
}

// GetUser returns one user by id.
func (s *Service) GetUser(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	user, err := s.store.GetUserByID(id)
	if err != nil {
		if errors.Is(err, security.ErrUserNotFound) {
			return notFound(c, "user not found")
		}

		log.Error().Err(err).Msg("failed to get user")

		return fiber.ErrInternalServerError
	}

	return c.JSON(toUserResponse(user))
}

// CreateUser provisions a database user.
func (s *Service) CreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	roles, err := s.rolesByName(req.Roles)
	if err != nil {
		return badRequest(c, err.Error())
	}

	user, err := s.store.AddUser(
		authmw.CurrentUser(c),
		req.Username,
		req.FirstName,
		req.LastName,
		req.Email,
		models.HashPassword(req.Password),
		roles,
	)
	if err != nil {
		if errors.Is(err, security.ErrUserNameOrEmailExists) {
			return conflict(c, "username or email already exists")
		}

		log.Error().Err(err).Msg("failed to create user")

		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
}

// UpdateUser applies a partial update.
func (s *Service) UpdateUser(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	var req updateUserRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	user, err := s.store.GetUserByID(id)
	if err != nil {
		if errors.Is(err, security.ErrUserNotFound) {
			return notFound(c, "user not found")
		}

		log.Error().Err(err).Msg("failed to get user")

		return fiber.ErrInternalServerError
	}

	if req.Email != nil {
		user.Email = *req.Email
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}

	if req.LastName != nil {
		user.LastName = *req.LastName
	}

	if req.Active != nil {
		user.Active = *req.Active
	}

	if err = s.store.UpdateUser(authmw.CurrentUser(c), user); err != nil {
		if errors.Is(err, security.ErrUserNameOrEmailExists) {
			return conflict(c, "username or email already exists")
		}

		log.Error().Err(err).Msg("failed to update user")

		return fiber.ErrInternalServerError
	}

	if req.Roles != nil {
		roles, errRoles := s.rolesByName(req.Roles)
		if errRoles != nil {
			return badRequest(c, errRoles.Error())
		}

		if errRoles = s.store.SetUserRoles(user, roles); errRoles != nil {
			log.Error().Err(errRoles).Msg("failed to set user roles")
			return fiber.ErrInternalServerError
		}
	}

	return c.JSON(toUserResponse(user))
}

// DeleteUser deactivates the account. History stays intact, the login stops
// working.
func (s *Service) DeleteUser(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	if _, err = s.store.GetUserByID(id); err != nil {
		if errors.Is(err, security.ErrUserNotFound) {
			return notFound(c, "user not found")
		}

		log.Error().Err(err).Msg("failed to get user")

		return fiber.ErrInternalServerError
	}

	if err = s.store.DeactivateUser(id); err != nil {
		log.Error().Err(err).Msg("failed to deactivate user")
		return fiber.ErrInternalServerError
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// rolesByName resolves role names, failing on the first unknown one.
func (s *Service) rolesByName(names []string) ([]*models.Role, error) {
	roles := make([]*models.Role, 0, len(names))

	for _, name := range names {
		role, err := s.store.FindRole(name)
		if err != nil {
			return nil, err
		}

		if role == nil {
			return nil, errors.Errorf("unknown role %q", name)
		}

		roles = append(roles, role)
	}

	return roles, nil
}
