package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	productapp "equiprent/internal/app/handlers/products"
	"equiprent/internal/app/queries"
)

// maxImageSize bounds vendor image uploads.
const maxImageSize = 10 << 20

type ProductHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h ProductHandler) Catalog(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	result, err := queries.Ask[productapp.CatalogQuery, *dto.ProductList](c.Request.Context(), h.Queries, productapp.CatalogQuery{
		Category: c.Query("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ProductHandler) Get(c *gin.Context) {
	result, err := queries.Ask[productapp.GetProductQuery, *dto.Product](c.Request.Context(), h.Queries, productapp.GetProductQuery{ProductID: c.Param("id")})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ProductHandler) VendorList(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	result, err := queries.Ask[productapp.VendorProductsQuery, *dto.ProductList](c.Request.Context(), h.Queries, productapp.VendorProductsQuery{Limit: limit, Offset: offset})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ProductHandler) Create(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	var payload productapp.ProductPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	result, err := commands.Dispatch[productapp.CreateProductCommand, *dto.Product](c.Request.Context(), h.Commands, productapp.CreateProductCommand{Payload: payload})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ProductHandler) Update(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	var payload productapp.ProductPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	result, err := commands.Dispatch[productapp.UpdateProductCommand, *dto.Product](c.Request.Context(), h.Commands, productapp.UpdateProductCommand{
		ProductID: c.Param("id"),
		Payload:   payload,
	})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ProductHandler) Publish(c *gin.Context)   { h.setPublished(c, true) }
func (h ProductHandler) Unpublish(c *gin.Context) { h.setPublished(c, false) }

func (h ProductHandler) setPublished(c *gin.Context, publish bool) {
	if _, ok := requireActor(c); !ok {
		return
	}
	result, err := commands.Dispatch[productapp.PublishProductCommand, *dto.Product](c.Request.Context(), h.Commands, productapp.PublishProductCommand{
		ProductID: c.Param("id"),
		Publish:   publish,
	})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UploadImage accepts a multipart "file" field and attaches the stored image to the product.
func (h ProductHandler) UploadImage(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageSize)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file unreadable"})
		return
	}
	defer file.Close()

	result, err := commands.Dispatch[productapp.UploadProductImageCommand, *dto.Product](c.Request.Context(), h.Commands, productapp.UploadProductImageCommand{
		ProductID:   c.Param("id"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      file,
	})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ProductHTTP = ProductHandler{}
