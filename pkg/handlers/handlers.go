package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sentivibe/sentivibe-api/pkg/analysis"
	"github.com/sentivibe/sentivibe-api/pkg/billing"
	"github.com/sentivibe/sentivibe-api/pkg/cache"
	"github.com/sentivibe/sentivibe-api/pkg/chat"
	"github.com/sentivibe/sentivibe-api/pkg/comparison"
	"github.com/sentivibe/sentivibe-api/pkg/config"
	"github.com/sentivibe/sentivibe-api/pkg/copilot"
	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/middleware"
	"github.com/sentivibe/sentivibe-api/pkg/services"
	"github.com/sentivibe/sentivibe-api/pkg/usage"
)

// Store is the read side the handlers use directly. *queries.Store
// implements it.
type Store interface {
	CreateUser(ctx context.Context, user *db.User) (*db.User, error)
	FindUserByEmail(ctx context.Context, email string) (*db.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*db.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	FindSubscriptionByUserID(ctx context.Context, userID uuid.UUID) (*db.Subscription, error)

	FindAnalysisByVideoID(ctx context.Context, videoID string) (*db.Analysis, error)
	FindAnalysisByID(ctx context.Context, id uuid.UUID) (*db.Analysis, error)
	ListAnalyses(ctx context.Context, limit, offset int) ([]db.Analysis, error)
	FindComparisonByID(ctx context.Context, id uuid.UUID) (*db.Comparison, error)
	FindMultiComparisonByID(ctx context.Context, id uuid.UUID) (*db.MultiComparison, error)
	ListMultiComparisonVideos(ctx context.Context, id uuid.UUID) ([]db.Analysis, error)
}

// Handlers holds the dependencies of every endpoint.
type Handlers struct {
	Config     *config.Config
	Store      Store
	JWT        *services.JWTService
	Gate       *usage.Gate
	Analysis   *analysis.Service
	Comparison *comparison.Service
	Chat       *chat.Service
	Copilot    *copilot.Service
	Billing    *billing.Processor
	Cache      *cache.Cache
	// Ping checks the database for readiness.
	Ping func(ctx context.Context) error

	now func() time.Time
}

// NewHandlers creates a new instance of Handlers
func NewHandlers(h Handlers) *Handlers {
	if h.now == nil {
		h.now = time.Now
	}
	return &h
}

// caller resolves the requester's identity and tier.
func (h *Handlers) caller(c *gin.Context) (usage.Caller, error) {
	var userID *uuid.UUID
	if claims, ok := middleware.GetUserClaimsFromContext(c); ok {
		id := claims.UserID
		userID = &id
	}
	return h.Gate.Resolve(c.Request.Context(), userID, c.ClientIP())
}
