package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"whatsapp-core/internal/models"
	"whatsapp-core/internal/template"

	"github.com/gin-gonic/gin"
)

type TemplateHandler struct {
	Registry *template.Registry
}

func NewTemplateHandler(registry *template.Registry) *TemplateHandler {
	return &TemplateHandler{Registry: registry}
}

func (h *TemplateHandler) Create(c *gin.Context) {
	var in template.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tmpl, err := h.Registry.Create(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, template.ErrDuplicateName) {
			c.JSON(http.StatusConflict, gin.H{"error": "template name already exists"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, tmpl)
}

func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.Registry.List(c.Request.Context(), c.Query("locale"), c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (h *TemplateHandler) GetByName(c *gin.Context) {
	tmpl, err := h.Registry.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tmpl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (h *TemplateHandler) Approve(c *gin.Context) {
	h.transition(c, h.Registry.Approve)
}

func (h *TemplateHandler) Reject(c *gin.Context) {
	h.transition(c, h.Registry.Reject)
}

func (h *TemplateHandler) transition(c *gin.Context, fn func(ctx context.Context, id uint) (*models.Template, error)) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template id"})
		return
	}

	tmpl, err := fn(c.Request.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, template.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		case errors.Is(err, template.ErrTemplateFinalized):
			c.JSON(http.StatusConflict, gin.H{"error": "template status already finalized"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, tmpl)
}
