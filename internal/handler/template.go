package handler

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/internal/template"
	"github.com/clipforge/api/internal/validate"
	"github.com/clipforge/api/pkg/response"
)

// TemplateHandler serves template CRUD.
type TemplateHandler struct {
	store *template.Store
}

func NewTemplateHandler(store *template.Store) *TemplateHandler {
	return &TemplateHandler{store: store}
}

// Create handles POST /create-template.
func (h *TemplateHandler) Create(c *fiber.Ctx) error {
	var tpl model.Template
	if err := c.BodyParser(&tpl); err != nil {
		return response.BadRequest(c, response.CodeInvalidRequest, "Request body is required", nil)
	}

	if err := h.store.Create(&tpl); err != nil {
		var ve *validate.Error
		switch {
		case errors.As(err, &ve):
			return response.BadRequest(c, ve.Code, ve.Message, ve.Details)
		case errors.Is(err, template.ErrExists):
			return response.Conflict(c, response.CodeTemplateExists,
				fmt.Sprintf("Template already exists: %s", tpl.TemplateID))
		default:
			return response.ServerError(c, err.Error())
		}
	}

	log.Printf("Template created: %s", tpl.TemplateID)
	return response.Created(c, fiber.Map{
		"status":      "created",
		"template_id": tpl.TemplateID,
	})
}

// List handles GET /templates.
func (h *TemplateHandler) List(c *fiber.Ctx) error {
	templates := h.store.List()
	return response.OK(c, fiber.Map{
		"templates": templates,
		"count":     len(templates),
	})
}

// Get handles GET /templates/:templateId.
func (h *TemplateHandler) Get(c *fiber.Ctx) error {
	id := c.Params("templateId")
	tpl, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, template.ErrNotFound) {
			return response.NotFound(c, response.CodeTemplateNotFound,
				fmt.Sprintf("Template not found: %s", id))
		}
		return response.ServerError(c, err.Error())
	}
	return response.OK(c, tpl)
}

// Delete handles DELETE /templates/:templateId.
func (h *TemplateHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("templateId")
	if err := h.store.Delete(id); err != nil {
		switch {
		case errors.Is(err, template.ErrNotFound):
			return response.NotFound(c, response.CodeTemplateNotFound,
				fmt.Sprintf("Template not found: %s", id))
		case errors.Is(err, template.ErrIsDefault):
			return response.Error(c, fiber.StatusForbidden, response.CodeCannotDelete,
				"Cannot delete default templates", nil)
		default:
			return response.ServerError(c, err.Error())
		}
	}

	log.Printf("Template deleted: %s", id)
	return response.OK(c, fiber.Map{
		"status":      "deleted",
		"template_id": id,
	})
}
