package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/middleware"
	"github.com/sentivibe/sentivibe-api/pkg/tier"
	"github.com/sentivibe/sentivibe-api/pkg/utils"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handlers) LoginUser(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debugf("LoginUser: Invalid request body: %v", err)
		utils.ResponseWithError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	req.Email = strings.ToLower(req.Email)

	user, err := h.Store.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		log.Errorf("LoginUser: Error finding user by email: %v", err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Login failed", nil)
		return
	}
	if user == nil {
		utils.ResponseWithError(c, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Debugf("LoginUser: Invalid password for user %s.", user.ID.String())
		utils.ResponseWithError(c, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	token, err := h.JWT.GenerateToken(user.ID, user.Email, user.Username)
	if err != nil {
		log.Errorf("LoginUser: Failed to generate JWT token for user %s: %v", user.ID.String(), err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Failed to generate authentication token", nil)
		return
	}

	log.Infof("LoginUser: User %s logged in.", user.ID.String())
	utils.ResponseWithSuccess(c, http.StatusOK, "Login successful", gin.H{"token": token})
}

func (h *Handlers) RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debugf("RegisterUser: Invalid request body: %v", err)
		utils.ResponseWithError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	req.Email = strings.ToLower(req.Email)

	ctx := c.Request.Context()
	existingUser, err := h.Store.FindUserByEmail(ctx, req.Email)
	if err != nil {
		log.Errorf("RegisterUser: Error finding user by email: %v", err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Registration failed", nil)
		return
	}
	if existingUser != nil {
		utils.ResponseWithError(c, http.StatusConflict, "User with email already exists", nil)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Errorf("RegisterUser: Error hashing password: %v", err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Registration failed", nil)
		return
	}

	user := &db.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
	}

	createdUser, err := h.Store.CreateUser(ctx, user)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			utils.ResponseWithError(c, http.StatusConflict, "Username or email already taken", nil)
			return
		}
		log.Errorf("RegisterUser: Error creating user: %v", err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Registration failed", nil)
		return
	}
	log.Infof("RegisterUser: User with ID '%s' created.", createdUser.ID.String())

	utils.ResponseWithSuccess(c, http.StatusCreated, "User created successfully", gin.H{"user_id": createdUser.ID})
}

// Profile returns the authenticated user and their plan.
func (h *Handlers) Profile(c *gin.Context) {
	claims, ok := middleware.GetUserClaimsFromContext(c)
	if !ok {
		utils.ResponseWithAppError(c, apperr.Unauthorized("Authentication required"))
		return
	}

	ctx := c.Request.Context()
	user, err := h.Store.FindUserByID(ctx, claims.UserID)
	if err != nil {
		log.Errorf("Profile: Error loading user %s: %v", claims.UserID.String(), err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Failed to load profile", nil)
		return
	}
	if user == nil {
		utils.ResponseWithError(c, http.StatusNotFound, "User account not found", nil)
		return
	}

	sub, err := h.Store.FindSubscriptionByUserID(ctx, user.ID)
	if err != nil {
		log.Errorf("Profile: Error loading subscription for %s: %v", user.ID.String(), err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Failed to load profile", nil)
		return
	}

	current := tier.Free
	subscription := gin.H{"plan_id": db.PlanFree, "status": db.StatusActive}
	if sub != nil {
		subscription = gin.H{"plan_id": sub.PlanID, "status": sub.Status}
		if sub.CurrentPeriodEnd.Valid {
			subscription["current_period_end"] = sub.CurrentPeriodEnd.Time
		}
		if sub.IsPaid() {
			current = tier.Paid
		}
	}

	utils.ResponseWithSuccess(c, http.StatusOK, "Profile loaded", gin.H{
		"user_id":      user.ID,
		"email":        user.Email,
		"username":     user.Username,
		"created_at":   user.CreatedAt,
		"tier":         current,
		"subscription": subscription,
	})
}

// DeleteUser deletes the caller's own account. Analyses and comparisons
// they created stay in the library.
func (h *Handlers) DeleteUser(c *gin.Context) {
	claims, ok := middleware.GetUserClaimsFromContext(c)
	if !ok {
		utils.ResponseWithAppError(c, apperr.Unauthorized("Authentication required"))
		return
	}

	err := h.Store.DeleteUser(c.Request.Context(), claims.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		utils.ResponseWithError(c, http.StatusNotFound, "User account not found or already deleted.", nil)
		return
	}
	if err != nil {
		log.Errorf("DeleteUser: Error deleting user %s: %v", claims.UserID.String(), err)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Failed to delete user account", nil)
		return
	}

	log.Infof("DeleteUser: User %s deleted.", claims.UserID.String())
	utils.ResponseWithSuccess(c, http.StatusOK, "User account deleted successfully", nil)
}
