package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eduvisor-backend/services"
	"eduvisor-backend/utils"
)

// SetupInsightRoutes registers the analytics endpoints.
func SetupInsightRoutes(router *gin.Engine, insights *services.InsightsService) {
	group := router.Group("/insights")

	group.GET("/courses/:course_id/topics", func(c *gin.Context) {
		courseID := c.Param("course_id")

		topics, err := insights.CourseTopics(c.Request.Context(), courseID)
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"course_id": courseID,
			"topics":    topics,
		})
	})

	group.GET("/courses/:course_id/users/:user_id", func(c *gin.Context) {
		courseID := c.Param("course_id")
		userID := c.Param("user_id")

		summary, err := insights.UserSummary(c.Request.Context(), userID, courseID)
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusOK, summary)
	})

	group.GET("/courses/:course_id/export", func(c *gin.Context) {
		courseID := c.Param("course_id")

		report, err := insights.ExportCourseReport(c.Request.Context(), courseID)
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.Header("Content-Disposition", "attachment; filename="+courseID+"_report.xlsx")
		c.Data(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", report)
	})
}
