package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gymkhana-api/internal/middleware"
	"github.com/noah-isme/gymkhana-api/internal/models"
)

func actorFromContext(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(middleware.ContextActorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok
}
