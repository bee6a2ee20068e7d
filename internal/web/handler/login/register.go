package login

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/auth"
	"github.com/go-secadmin/go-secadmin/internal/security"
)

// RegisterPath is the base path of the self-registration flow.
const RegisterPath = "/register"

const minRegisterPasswordLen = 8

type registerForm struct {
	Username  string `json:"username" form:"username"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
}

// Register records a pending self-registration. The confirmation hash is
// returned in the response for delivery to the registrant; confirming it via
// the activation endpoint creates the account.
func (s *Service) Register(c *fiber.Ctx) error {
	if !s.cfg.Auth.UserRegistration {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "self registration is not enabled",
		})
	}

	var form registerForm
	if err := c.BodyParser(&form); err != nil {
		return badRequest(c, "invalid form data")
	}

	if form.Username == "" || form.Email == "" || form.Password == "" {
		return badRequest(c, "username, email and password are required")
	}

	if len(form.Password) < minRegisterPasswordLen {
		return badRequest(c, "password must be at least 8 characters")
	}

	reg, err := s.registrar.BeginRegistration(
		form.Username, form.FirstName, form.LastName, form.Email, form.Password,
	)
	if err != nil {
		if errors.Is(err, security.ErrUserNameOrEmailExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "username or email is already taken",
			})
		}

		log.Error().Err(err).Msg("self registration failed")

		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":           "registration pending confirmation",
		"registration_hash": reg.RegistrationHash,
	})
}

// RegisterActivation confirms a pending registration by its hash and creates
// the account with the configured registration role.
func (s *Service) RegisterActivation(c *fiber.Ctx) error {
	user, err := s.registrar.ConfirmRegistration(c.Params("hash"))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRegistrationNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "unknown or already confirmed registration",
			})
		case errors.Is(err, security.ErrUserNameOrEmailExists):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "username or email is already taken",
			})
		default:
			log.Error().Err(err).Msg("registration confirmation failed")
			return fiber.ErrInternalServerError
		}
	}

	return c.JSON(fiber.Map{
		"message":  "registration confirmed",
		"username": user.Username,
	})
}
