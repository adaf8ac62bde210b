// controllers/auth_controller.go
package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/rsleiman/souqly_backend/middleware"
	"github.com/rsleiman/souqly_backend/models"
	"github.com/rsleiman/souqly_backend/network"
	"github.com/rsleiman/souqly_backend/repositories"
	"github.com/rsleiman/souqly_backend/services"
	"github.com/rsleiman/souqly_backend/utils"
)

type AuthController struct {
	db           *mongo.Client
	repo         *repositories.MemberRepository
	orchestrator *network.Orchestrator
}

func NewAuthController(db *mongo.Client, repo *repositories.MemberRepository, orchestrator *network.Orchestrator) *AuthController {
	return &AuthController{db: db, repo: repo, orchestrator: orchestrator}
}

// Signup creates the account and attaches it to the binary network.
// Placement rejections are reported to the caller; the account itself
// still exists as an unplaced root in that case.
func (ac *AuthController) Signup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
			Data:    err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}
	if (req.UplineCode == "") != (req.Side == "") {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "uplineCode and side must be supplied together",
		})
	}

	if _, err := ac.repo.FindByEmail(ctx, req.Email); err == nil {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Email already registered",
		})
	} else if !errors.Is(err, network.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to check existing account",
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process password",
		})
	}

	referralCode, err := ac.uniqueReferralCode(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate referral code",
		})
	}

	member := &models.Member{
		Email:        req.Email,
		Password:     string(hashedPassword),
		FullName:     req.FullName,
		Phone:        req.Phone,
		IsActive:     true,
		ReferralCode: referralCode,
	}

	member, regErr := ac.orchestrator.Register(ctx, network.RegistrationInput{
		Member:       member,
		ReferrerCode: req.ReferrerCode,
		UplineCode:   req.UplineCode,
		Side:         network.Side(req.Side),
	})
	if regErr != nil && member == nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create account",
			Data:    regErr.Error(),
		})
	}

	go services.SendWelcomeEmail(member)

	token, refreshToken, err := middleware.GenerateJWT(member.ID.Hex(), member.Email, member.ReferralCode)
	if err != nil {
		log.Printf("signup: failed to issue token for %s: %v", member.Email, err)
	}
	member.Password = ""

	if regErr != nil {
		// Account exists but the network attachment was rejected; the
		// caller gets the reason instead of a silent no-op.
		return c.JSON(placementStatus(regErr), models.Response{
			Status:  placementStatus(regErr),
			Message: "Account created but network placement failed: " + regErr.Error(),
			Data: map[string]interface{}{
				"member": member,
				"token":  token,
			},
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Account created successfully",
		Data: models.LoginResponse{
			Token:        token,
			RefreshToken: refreshToken,
			Member:       *member,
		},
	})
}

// Login authenticates a member and issues JWT tokens.
func (ac *AuthController) Login(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	member, err := ac.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid email or password",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.Password), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid email or password",
		})
	}

	token, refreshToken, err := middleware.GenerateJWT(member.ID.Hex(), member.Email, member.ReferralCode)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate token",
		})
	}
	member.Password = ""

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Login successful",
		Data: models.LoginResponse{
			Token:        token,
			RefreshToken: refreshToken,
			Member:       *member,
		},
	})
}

// uniqueReferralCode generates a code that does not collide with any
// existing member. The unique index on referralCode is the backstop.
func (ac *AuthController) uniqueReferralCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.GenerateReferralCode()
		if err != nil {
			return "", err
		}
		_, err = ac.repo.FindByCode(ctx, code)
		if errors.Is(err, network.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not generate a unique referral code")
}

// placementStatus maps engine rejections to HTTP status codes.
func placementStatus(err error) int {
	switch {
	case errors.Is(err, network.ErrUplineNotFound):
		return http.StatusNotFound
	case errors.Is(err, network.ErrSlotOccupied):
		return http.StatusConflict
	case errors.Is(err, network.ErrMaxDepthExceeded), errors.Is(err, network.ErrCycleDetected), errors.Is(err, network.ErrDetachedAncestor):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
