package middleware

import (
	"github.com/gin-gonic/gin"

	"eduvisor-backend/internal/config"
	"eduvisor-backend/internal/logger"
	"eduvisor-backend/utils"
)

const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware gates every API route behind a shared API key. The
// presented key is compared against the configured bcrypt hashes so raw
// keys never live in configuration.
func APIKeyMiddleware(cfg *config.Config) gin.HandlerFunc {
	if len(cfg.APIKeyHashes) == 0 {
		logger.Warn("no API key hashes configured, the API key gate is disabled")
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if c.FullPath() == "/health" || c.FullPath() == "/ready" {
			c.Next()
			return
		}

		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			utils.RespondWithUnauthorized(c, "missing API key")
			c.Abort()
			return
		}

		if !utils.CheckAPIKey(key, cfg.APIKeyHashes) {
			utils.RespondWithUnauthorized(c, "invalid API key")
			c.Abort()
			return
		}

		c.Next()
	}
}
