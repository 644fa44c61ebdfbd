package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"equiprent/internal/app/dto"
	orderapp "equiprent/internal/app/handlers/orders"
	"equiprent/internal/app/queries"
)

type OrderHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h OrderHandler) List(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	result, err := queries.Ask[orderapp.ListOrdersQuery, *dto.OrderList](c.Request.Context(), h.Queries, orderapp.ListOrdersQuery{Limit: limit, Offset: offset})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OrderHandler) Get(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	result, err := queries.Ask[orderapp.GetOrderQuery, *dto.Order](c.Request.Context(), h.Queries, orderapp.GetOrderQuery{OrderID: c.Param("id")})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ OrderHTTP = OrderHandler{}
