package handlers

import (
	"net/http"

	"github.com/andresuchdata/backupctl/internal/api/openapi"
	"github.com/gin-gonic/gin"
)

type OpenAPIHandler struct {
	document openapi.Document
}

func NewOpenAPIHandler(version string) *OpenAPIHandler {
	return &OpenAPIHandler{document: openapi.Build(version)}
}

func (h *OpenAPIHandler) GetDocument(c *gin.Context) {
	c.JSON(http.StatusOK, h.document)
}
