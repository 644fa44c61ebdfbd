package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	quotationapp "equiprent/internal/app/handlers/quotations"
	"equiprent/internal/app/queries"
)

type QuotationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type quotationRequest struct {
	Lines      []quotationapp.LineInput `json:"lines"`
	Notes      string                   `json:"notes"`
	ValidUntil *time.Time               `json:"valid_until"`
}

func (h QuotationHandler) Create(c *gin.Context) {
	who, ok := requireActor(c)
	if !ok {
		return
	}
	var req quotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	cmd := quotationapp.CreateQuotationCommand{
		Lines:      req.Lines,
		Notes:      req.Notes,
		ValidUntil: req.ValidUntil,
	}
	// Keys are scoped per caller so two customers cannot collide on one header value.
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		cmd.IdempotencyKeyV = who.UserID + ":" + key
	}
	result, err := commands.Dispatch[quotationapp.CreateQuotationCommand, *dto.Quotation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h QuotationHandler) Update(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	var req quotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	result, err := commands.Dispatch[quotationapp.UpdateQuotationCommand, *dto.Quotation](c.Request.Context(), h.Commands, quotationapp.UpdateQuotationCommand{
		QuotationID: c.Param("id"),
		Lines:       req.Lines,
		Notes:       req.Notes,
		ValidUntil:  req.ValidUntil,
	})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h QuotationHandler) Get(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	result, err := queries.Ask[quotationapp.GetQuotationQuery, *dto.Quotation](c.Request.Context(), h.Queries, quotationapp.GetQuotationQuery{QuotationID: c.Param("id")})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h QuotationHandler) List(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	result, err := queries.Ask[quotationapp.ListQuotationsQuery, *dto.QuotationList](c.Request.Context(), h.Queries, quotationapp.ListQuotationsQuery{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h QuotationHandler) Send(c *gin.Context) {
	transition(c, h, quotationapp.SendQuotationCommand{QuotationID: c.Param("id")})
}

func (h QuotationHandler) Confirm(c *gin.Context) {
	transition(c, h, quotationapp.ConfirmQuotationCommand{QuotationID: c.Param("id")})
}

func (h QuotationHandler) Expire(c *gin.Context) {
	transition(c, h, quotationapp.ExpireQuotationCommand{QuotationID: c.Param("id")})
}

func transition[C commands.Command](c *gin.Context, h QuotationHandler, cmd C) {
	if _, ok := requireActor(c); !ok {
		return
	}
	result, err := commands.Dispatch[C, *dto.Quotation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h QuotationHandler) Delete(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	_, err := commands.Dispatch[quotationapp.DeleteQuotationCommand, *quotationapp.DeleteQuotationResult](c.Request.Context(), h.Commands, quotationapp.DeleteQuotationCommand{QuotationID: c.Param("id")})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExpireDue runs the expiry sweep on demand.
func (h QuotationHandler) ExpireDue(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	result, err := commands.Dispatch[quotationapp.ExpireDueQuotationsCommand, *quotationapp.ExpireDueQuotationsResult](c.Request.Context(), h.Commands, quotationapp.ExpireDueQuotationsCommand{})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// pagination reads limit and offset, answering 400 on malformed values.
func pagination(c *gin.Context) (int, int, bool) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return 0, 0, false
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be an integer"})
		return 0, 0, false
	}
	return limit, offset, true
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

var _ QuotationHTTP = QuotationHandler{}
