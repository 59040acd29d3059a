package routes

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"eduvisor-backend/internal/blob"
	"eduvisor-backend/internal/config"
	"eduvisor-backend/internal/logger"
	"eduvisor-backend/internal/queue"
	"eduvisor-backend/services"
	"eduvisor-backend/utils"
)

// SetupMaterialRoutes registers upload, listing, download and deletion of
// course PDFs. Every mutation enqueues an index rebuild so the course's
// snapshot catches up with its materials.
func SetupMaterialRoutes(router *gin.Engine, cfg *config.Config, store blob.Store, queueClient *asynq.Client) {
	materials := router.Group("/courses/:course_id/materials")

	materials.POST("", func(c *gin.Context) {
		courseID := c.Param("course_id")

		fileHeader, err := c.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "file field required", gin.H{"error": err.Error()})
			return
		}

		filename := path.Base(fileHeader.Filename)
		if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
			utils.RespondWithBadRequest(c, "only PDF uploads are accepted", nil)
			return
		}
		if cfg.MaxFileSize > 0 && fileHeader.Size > cfg.MaxFileSize {
			utils.RespondWithBadRequest(c, "file exceeds the maximum upload size", gin.H{
				"max_bytes": cfg.MaxFileSize,
			})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			utils.RespondWithInternalError(c, "failed to read upload", nil)
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			utils.RespondWithInternalError(c, "failed to read upload", nil)
			return
		}

		key := services.MaterialKey(courseID, filename)
		if err := store.Put(c.Request.Context(), key, content); err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		enqueueRebuild(queueClient, courseID)

		c.JSON(http.StatusCreated, gin.H{
			"message":   "material uploaded, index rebuild queued",
			"course_id": courseID,
			"title":     strings.TrimSuffix(filename, ".pdf"),
			"size":      len(content),
		})
	})

	materials.GET("", func(c *gin.Context) {
		courseID := c.Param("course_id")

		keys, err := store.List(c.Request.Context(), services.MaterialPrefix(courseID))
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		titles := make([]string, 0, len(keys))
		for _, key := range keys {
			name := path.Base(key)
			if strings.HasSuffix(name, ".pdf") {
				titles = append(titles, strings.TrimSuffix(name, ".pdf"))
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"course_id": courseID,
			"materials": titles,
			"total":     len(titles),
		})
	})

	materials.GET("/:title", func(c *gin.Context) {
		courseID := c.Param("course_id")
		title := path.Base(c.Param("title"))

		content, err := store.Get(c.Request.Context(), services.MaterialKey(courseID, title+".pdf"))
		if err == blob.ErrNotFound {
			utils.RespondWithNotFound(c, "material not found")
			return
		}
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.Header("Content-Disposition", "attachment; filename="+title+".pdf")
		c.Data(http.StatusOK, "application/pdf", content)
	})

	materials.DELETE("/:title", func(c *gin.Context) {
		courseID := c.Param("course_id")
		title := path.Base(c.Param("title"))

		err := store.Delete(c.Request.Context(), services.MaterialKey(courseID, title+".pdf"))
		if err == blob.ErrNotFound {
			utils.RespondWithNotFound(c, "material not found")
			return
		}
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		enqueueRebuild(queueClient, courseID)

		c.JSON(http.StatusOK, gin.H{
			"message":   "material deleted, index rebuild queued",
			"course_id": courseID,
			"title":     title,
		})
	})

	materials.POST("/rebuild", func(c *gin.Context) {
		courseID := c.Param("course_id")
		enqueueRebuild(queueClient, courseID)
		c.JSON(http.StatusAccepted, gin.H{
			"message":   "index rebuild queued",
			"course_id": courseID,
		})
	})
}

func enqueueRebuild(client *asynq.Client, courseID string) {
	task, err := queue.NewIndexRebuildTask(courseID)
	if err != nil {
		logger.Error("failed to build rebuild task", "course_id", courseID, "error", err)
		return
	}
	if _, err := client.Enqueue(task); err != nil {
		logger.Error("failed to enqueue index rebuild", "course_id", courseID, "error", err)
	}
}
