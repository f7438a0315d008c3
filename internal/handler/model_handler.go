package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modelfactory/portal/internal/domain"
	"github.com/modelfactory/portal/internal/service"
	"github.com/modelfactory/portal/pkg/response"
)

type ModelHandler struct {
	lifecycle service.LifecycleService
}

func NewModelHandler(lifecycle service.LifecycleService) *ModelHandler {
	return &ModelHandler{lifecycle: lifecycle}
}

func (h *ModelHandler) Create(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	algorithmID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req domain.ModelCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	model, err := h.lifecycle.CreateModel(c.Request.Context(), algorithmID, userID, &req)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Created(c, model)
}

func (h *ModelHandler) List(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	algorithmID, ok := pathID(c, "id")
	if !ok {
		return
	}

	models, err := h.lifecycle.ListModels(c.Request.Context(), algorithmID, userID)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Success(c, models)
}

func (h *ModelHandler) Get(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	model, err := h.lifecycle.GetModel(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Success(c, model)
}

func (h *ModelHandler) Delete(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.lifecycle.DeleteModel(c.Request.Context(), id, userID); err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.SuccessWithMessage(c, "model deleted", nil)
}

func (h *ModelHandler) ListVersions(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	versions, err := h.lifecycle.ListVersions(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Success(c, versions)
}

func (h *ModelHandler) Promote(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	model, err := h.lifecycle.Promote(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Success(c, model)
}

func (h *ModelHandler) Rollback(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	model, err := h.lifecycle.Rollback(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Success(c, model)
}

func (h *ModelHandler) Archive(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	model, err := h.lifecycle.Archive(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Success(c, model)
}
