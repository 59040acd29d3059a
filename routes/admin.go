package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eduvisor-backend/models"
	"eduvisor-backend/repository"
	"eduvisor-backend/utils"
)

// SetupUserRoutes registers user lifecycle endpoints.
func SetupUserRoutes(router *gin.Engine, users *repository.UserRepository) {
	group := router.Group("/users")

	group.POST("", func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id" binding:"required"`
			Email  string `json:"email" binding:"required,email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		user := &models.User{UserID: req.UserID, Email: req.Email}
		if err := users.Create(c.Request.Context(), user); err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusCreated, user)
	})

	group.GET("/:user_id", func(c *gin.Context) {
		user, err := users.Get(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	})

	group.PATCH("/:user_id/status", func(c *gin.Context) {
		var req struct {
			Status string `json:"status" binding:"required,oneof=ACTIVATED DEACTIVATED"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if err := users.SetStatus(c.Request.Context(), c.Param("user_id"), req.Status); err != nil {
			utils.RespondWithAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "status updated"})
	})
}

// SetupAdminRoutes registers the admin access request workflow.
func SetupAdminRoutes(router *gin.Engine, users *repository.UserRepository, requests *repository.AdminRequestRepository) {
	group := router.Group("/admin/requests")

	group.POST("", func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id" binding:"required"`
			Email  string `json:"email" binding:"required,email"`
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		request := &models.AdminRequest{
			UserID: req.UserID,
			Email:  req.Email,
			Reason: req.Reason,
		}
		if err := requests.Create(c.Request.Context(), request); err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusCreated, request)
	})

	group.GET("", func(c *gin.Context) {
		list, err := requests.List(c.Request.Context())
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"requests": list,
			"total":    len(list),
		})
	})

	group.POST("/:user_id/approve", func(c *gin.Context) {
		userID := c.Param("user_id")

		if err := users.SetRole(c.Request.Context(), userID, models.RoleAdmin); err != nil {
			utils.RespondWithAppError(c, err)
			return
		}
		if err := requests.Delete(c.Request.Context(), userID); err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "admin access granted"})
	})

	group.POST("/:user_id/reject", func(c *gin.Context) {
		if err := requests.Delete(c.Request.Context(), c.Param("user_id")); err != nil {
			utils.RespondWithAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "request rejected"})
	})
}
