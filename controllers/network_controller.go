// controllers/network_controller.go
package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"

	"github.com/rsleiman/souqly_backend/middleware"
	"github.com/rsleiman/souqly_backend/models"
	"github.com/rsleiman/souqly_backend/repositories"
	"github.com/rsleiman/souqly_backend/utils"
	ws "github.com/rsleiman/souqly_backend/websocket"
)

const (
	defaultTreeDepth = 4
	maxTreeDepth     = 6
	treeCacheTTL     = 30 * time.Second
)

type NetworkController struct {
	repo  *repositories.MemberRepository
	redis *redis.Client
	hub   *ws.Hub
}

func NewNetworkController(repo *repositories.MemberRepository, redisClient *redis.Client, hub *ws.Hub) *NetworkController {
	return &NetworkController{repo: repo, redis: redisClient, hub: hub}
}

// GetNetworkTree returns the caller's subtree down to a bounded depth.
// Responses are cached briefly in Redis; the tree only grows, so a
// slightly stale view is acceptable here.
func (nc *NetworkController) GetNetworkTree(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	code, err := middleware.ExtractReferralCode(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	depth := defaultTreeDepth
	if depthStr := c.QueryParam("depth"); depthStr != "" {
		if parsed, err := strconv.Atoi(depthStr); err == nil && parsed > 0 {
			depth = parsed
		}
	}
	if depth > maxTreeDepth {
		depth = maxTreeDepth
	}

	cacheKey := "network:tree:" + code + ":" + strconv.Itoa(depth)
	if nc.redis != nil {
		if cached, err := nc.redis.Get(ctx, cacheKey).Result(); err == nil {
			var tree models.TreeNode
			if err := json.Unmarshal([]byte(cached), &tree); err == nil {
				return c.JSON(http.StatusOK, models.Response{
					Status:  http.StatusOK,
					Message: "Network tree retrieved",
					Data:    tree,
				})
			}
		}
	}

	tree, err := nc.buildTree(ctx, code, depth)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load network tree",
		})
	}

	if nc.redis != nil {
		if encoded, err := json.Marshal(tree); err == nil {
			if err := nc.redis.Set(ctx, cacheKey, encoded, treeCacheTTL).Err(); err != nil {
				log.Printf("network: failed to cache tree for %s: %v", code, err)
			}
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Network tree retrieved",
		Data:    tree,
	})
}

func (nc *NetworkController) buildTree(ctx context.Context, code string, depth int) (*models.TreeNode, error) {
	if code == "" || depth < 0 {
		return nil, nil
	}

	member, err := nc.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	node := &models.TreeNode{
		ReferralCode: member.ReferralCode,
		FullName:     member.FullName,
		LeftCount:    member.LeftCount,
		RightCount:   member.RightCount,
		PairsCount:   member.PairsCount,
	}
	if depth == 0 {
		return node, nil
	}

	if node.Left, err = nc.buildTree(ctx, member.LeftChildCode, depth-1); err != nil {
		return nil, err
	}
	if node.Right, err = nc.buildTree(ctx, member.RightChildCode, depth-1); err != nil {
		return nil, err
	}
	return node, nil
}

// GetEarnings returns the caller's income totals and the most recent
// pair-bonus ledger entries.
func (nc *NetworkController) GetEarnings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	code, err := middleware.ExtractReferralCode(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	member, err := nc.repo.FindByCode(ctx, code)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Member not found",
		})
	}

	bonuses, err := nc.repo.ListPairBonuses(ctx, code, 50)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load bonus ledger",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Earnings retrieved",
		Data: map[string]interface{}{
			"promotionalIncome": member.PromotionalIncome,
			"totalIncome":       member.TotalIncome,
			"pairsCount":        member.PairsCount,
			"leftCount":         member.LeftCount,
			"rightCount":        member.RightCount,
			"bonuses":           bonuses,
		},
	})
}

// GetReferralQRCode returns the caller's referral link as a PNG QR code.
func (nc *NetworkController) GetReferralQRCode(c echo.Context) error {
	code, err := middleware.ExtractReferralCode(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	image, err := utils.GenerateReferralQRCode(code)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate QR code",
		})
	}

	return c.Blob(http.StatusOK, "image/png", image)
}

// HandleNotifications upgrades the connection so the member receives
// pair-bonus pushes as their downline grows.
func (nc *NetworkController) HandleNotifications(c echo.Context) error {
	code, err := middleware.ExtractReferralCode(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	return ws.HandleWebSocket(c, nc.hub, code)
}
