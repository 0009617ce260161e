package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nutonium/merchant-auth/internal/account"
	"github.com/nutonium/merchant-auth/internal/otp"
)

// Handler exposes the auth endpoints the mobile client calls.
type Handler struct {
	svc *Service
}

// NewHandler builds the auth HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// envelope is the response shape the mobile client expects.
type envelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Data    fiber.Map `json:"data,omitempty"`
}

// accountJSON is the external representation of an account. Field-name
// translation to the client's camelCase happens here and nowhere else.
type accountJSON struct {
	ID          string `json:"id"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	ShopAddress string `json:"shopAddress"`
	GSTNumber   string `json:"gstNumber"`
	UPIID       string `json:"upiId"`
	IsVerified  bool   `json:"isVerified"`
}

func toAccountJSON(acct account.Account) accountJSON {
	return accountJSON{
		ID:          acct.ID,
		FullName:    acct.FullName,
		PhoneNumber: acct.PhoneNumber,
		ShopAddress: acct.ShopAddress,
		GSTNumber:   acct.TaxID,
		UPIID:       acct.PayoutID,
		IsVerified:  acct.Verified,
	}
}

type signupRequest struct {
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	ShopAddress string `json:"shopAddress"`
	GSTNumber   string `json:"gstNumber"`
	UPIID       string `json:"upiId"`
	Password    string `json:"password"`
}

// Signup registers a new merchant and triggers verification-code delivery.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	phone, err := account.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	profile := account.Profile{
		FullName:    req.FullName,
		ShopAddress: req.ShopAddress,
		TaxID:       req.GSTNumber,
		PayoutID:    req.UPIID,
	}
	if err := account.ValidateProfile(profile); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := account.ValidateSecret(req.Password); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	accountID, err := h.svc.Register(c.UserContext(), profile, phone, req.Password)
	if err != nil {
		return mapServiceError(err)
	}

	return c.Status(http.StatusCreated).JSON(envelope{
		Success: true,
		Message: "Account created. Verify your phone number with the code we sent.",
		Data:    fiber.Map{"userId": accountID},
	})
}

type loginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

// Login checks credentials and returns a session, or a requiresVerification
// outcome for accounts that have not confirmed their phone number.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	phone, err := account.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "password is required")
	}

	result, err := h.svc.Login(c.UserContext(), phone, req.Password)
	if err != nil {
		return mapServiceError(err)
	}

	if result.RequiresVerification {
		return c.Status(http.StatusOK).JSON(envelope{
			Success: false,
			Message: "Account not verified. Please verify your phone number first.",
			Data: fiber.Map{
				"requiresVerification": true,
				"userId":               result.Account.ID,
			},
		})
	}

	return c.Status(http.StatusOK).JSON(envelope{
		Success: true,
		Message: "Login successful",
		Data: fiber.Map{
			"user":  toAccountJSON(result.Account),
			"token": result.Session.Token,
		},
	})
}

type phoneRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

// SendCode issues and delivers a fresh verification code.
func (h *Handler) SendCode(c *fiber.Ctx) error {
	phone, err := h.parsePhone(c)
	if err != nil {
		return err
	}
	if err := h.svc.RequestCode(c.UserContext(), phone); err != nil {
		return mapServiceError(err)
	}
	return c.Status(http.StatusOK).JSON(envelope{
		Success: true,
		Message: "Code sent to your phone number",
	})
}

// ResendCode re-issues a verification code, superseding the previous one.
func (h *Handler) ResendCode(c *fiber.Ctx) error {
	phone, err := h.parsePhone(c)
	if err != nil {
		return err
	}
	if err := h.svc.ResendCode(c.UserContext(), phone); err != nil {
		return mapServiceError(err)
	}
	return c.Status(http.StatusOK).JSON(envelope{
		Success: true,
		Message: "Code resent to your phone number",
	})
}

type verifyRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	OTP         string `json:"otp"`
}

// VerifyCode consumes a submitted code and returns a session on success.
func (h *Handler) VerifyCode(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	phone, err := account.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := account.ValidateCode(req.OTP); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.VerifyCode(c.UserContext(), phone, req.OTP)
	if err != nil {
		return mapServiceError(err)
	}

	return c.Status(http.StatusOK).JSON(envelope{
		Success: true,
		Message: "Phone number verified",
		Data: fiber.Map{
			"user":  toAccountJSON(result.Account),
			"token": result.Session.Token,
		},
	})
}

// Me returns the profile of the account bound to the bearer token.
func (h *Handler) Me(c *fiber.Ctx) error {
	accountID, _ := c.Locals("account_id").(string)
	if accountID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}
	acct, err := h.svc.Profile(c.UserContext(), accountID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.Status(http.StatusOK).JSON(envelope{
		Success: true,
		Data:    fiber.Map{"user": toAccountJSON(acct)},
	})
}

func (h *Handler) parsePhone(c *fiber.Ctx) (string, error) {
	var req phoneRequest
	if err := c.BodyParser(&req); err != nil {
		return "", fiber.NewError(http.StatusBadRequest, err.Error())
	}
	phone, err := account.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return "", fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return phone, nil
}

// mapServiceError translates typed service errors into HTTP statuses. The
// mapping is exhaustive over error kinds; nothing matches on message text.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, account.ErrPhoneExists):
		return fiber.NewError(http.StatusConflict, "account with this phone number already exists")
	case errors.Is(err, account.ErrTaxIDExists):
		return fiber.NewError(http.StatusConflict, "account with this GST number already exists")
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, account.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "account not found")
	case errors.Is(err, otp.ErrNoCodeIssued):
		return fiber.NewError(http.StatusBadRequest, "no code issued, request a new one")
	case errors.Is(err, otp.ErrExpired):
		return fiber.NewError(http.StatusBadRequest, "code expired, request a new one")
	case errors.Is(err, otp.ErrMismatch):
		return fiber.NewError(http.StatusBadRequest, "invalid code")
	case errors.Is(err, account.ErrUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, "storage unavailable, retry shortly")
	default:
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
