package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eduvisor-backend/models"
	"eduvisor-backend/repository"
	"eduvisor-backend/utils"
)

// SetupCourseRoutes registers the course catalogue and enrolment
// endpoints.
func SetupCourseRoutes(router *gin.Engine, courses *repository.CourseRepository, enrolments *repository.EnrolmentRepository) {
	group := router.Group("/courses")

	group.POST("", func(c *gin.Context) {
		var req struct {
			CourseID   string `json:"course_id" binding:"required"`
			CourseName string `json:"course_name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		course := &models.Course{CourseID: req.CourseID, CourseName: req.CourseName}
		if err := courses.Create(c.Request.Context(), course); err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusCreated, course)
	})

	group.GET("", func(c *gin.Context) {
		list, err := courses.List(c.Request.Context())
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"courses": list,
			"total":   len(list),
		})
	})

	group.GET("/:course_id", func(c *gin.Context) {
		course, err := courses.Get(c.Request.Context(), c.Param("course_id"))
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, course)
	})

	group.DELETE("/:course_id", func(c *gin.Context) {
		if err := courses.Delete(c.Request.Context(), c.Param("course_id")); err != nil {
			utils.RespondWithAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "course deleted"})
	})

	group.POST("/:course_id/enrolments", func(c *gin.Context) {
		courseID := c.Param("course_id")

		var req struct {
			Emails []string `json:"emails" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if err := enrolments.AddBatch(c.Request.Context(), courseID, req.Emails); err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":   "students enrolled",
			"course_id": courseID,
			"count":     len(req.Emails),
		})
	})

	group.GET("/:course_id/enrolments", func(c *gin.Context) {
		list, err := enrolments.List(c.Request.Context(), c.Param("course_id"))
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"enrolments": list,
			"total":      len(list),
		})
	})

	group.GET("/:course_id/enrolments/:email", func(c *gin.Context) {
		enrolled, err := enrolments.IsEnrolled(c.Request.Context(), c.Param("course_id"), c.Param("email"))
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"enrolled": enrolled})
	})

	group.DELETE("/:course_id/enrolments/:email", func(c *gin.Context) {
		if err := enrolments.Remove(c.Request.Context(), c.Param("course_id"), c.Param("email")); err != nil {
			utils.RespondWithAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "enrolment removed"})
	})
}
