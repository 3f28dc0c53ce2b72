package controllers

import (
	"net/http"

	"storefront-service/models"

	"github.com/gin-gonic/gin"
)

type CatalogController struct{}

func NewCatalogController() *CatalogController {
	return &CatalogController{}
}

// ListProducts returns the fixed catalog in display order
func (cc *CatalogController) ListProducts(c *gin.Context) {
	products := models.Catalog()
	views := make([]productView, len(products))
	for i, p := range products {
		views[i] = newProductView(p)
	}
	c.JSON(http.StatusOK, gin.H{"products": views})
}

func (cc *CatalogController) GetProduct(c *gin.Context) {
	p, ok := models.FindProduct(c.Param("ref"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, newProductView(p))
}

type productView struct {
	models.Product
	Price string `json:"price"`
}

func newProductView(p models.Product) productView {
	return productView{Product: p, Price: models.FormatCents(p.PriceCents)}
}
