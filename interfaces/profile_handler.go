package interfaces

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type profileStore[T any] interface {
	List(ctx context.Context, userID string) ([]T, error)
	Get(ctx context.Context, userID, id string) (*T, error)
	Create(ctx context.Context, userID string, item *T) error
	Update(ctx context.Context, userID, id string, apply func(*T) error) (*T, error)
	Delete(ctx context.Context, userID, id string) error
}

// registerProfile mounts owner-scoped CRUD routes for one record kind.
// PUT decodes the body over the stored record, so omitted fields keep
// their values.
func registerProfile[T any](g *gin.RouterGroup, path string, store profileStore[T]) {
	g.GET(path, func(c *gin.Context) {
		items, err := store.List(c.Request.Context(), userID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	})

	g.POST(path, func(c *gin.Context) {
		var item T
		if err := c.ShouldBindJSON(&item); err != nil {
			badRequest(c, err)
			return
		}
		if err := store.Create(c.Request.Context(), userID(c), &item); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, item)
	})

	g.GET(path+"/:id", func(c *gin.Context) {
		item, err := store.Get(c.Request.Context(), userID(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})

	g.PUT(path+"/:id", func(c *gin.Context) {
		item, err := store.Update(c.Request.Context(), userID(c), c.Param("id"), func(item *T) error {
			return c.ShouldBindJSON(item)
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})

	g.DELETE(path+"/:id", func(c *gin.Context) {
		if err := store.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
