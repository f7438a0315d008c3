package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/modelfactory/portal/internal/domain"
	"github.com/modelfactory/portal/internal/middleware"
	"github.com/modelfactory/portal/internal/service"
	"github.com/modelfactory/portal/pkg/response"
)

type FactoryHandler struct {
	factoryService service.FactoryService
}

func NewFactoryHandler(factoryService service.FactoryService) *FactoryHandler {
	return &FactoryHandler{factoryService: factoryService}
}

// requestUser pulls the authenticated user out of the context, writing
// a 401 when absent.
func requestUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "user not authenticated")
		return uuid.Nil, false
	}
	return userID, true
}

// pathID parses a UUID path parameter, writing a 400 on malformed input
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func (h *FactoryHandler) Create(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}

	var req domain.FactoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	factory, err := h.factoryService.CreateFactory(c.Request.Context(), userID, &req)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Created(c, factory)
}

func (h *FactoryHandler) List(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}

	factories, err := h.factoryService.ListFactories(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Success(c, factories)
}

func (h *FactoryHandler) Get(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	factory, err := h.factoryService.GetFactory(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Success(c, factory)
}

func (h *FactoryHandler) Delete(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.factoryService.DeleteFactory(c.Request.Context(), id, userID); err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.SuccessWithMessage(c, "factory deleted", nil)
}

func (h *FactoryHandler) CreateAlgorithm(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	factoryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req domain.AlgorithmCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	algorithm, err := h.factoryService.CreateAlgorithm(c.Request.Context(), factoryID, userID, &req)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Created(c, algorithm)
}

func (h *FactoryHandler) ListAlgorithms(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	factoryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	algorithms, err := h.factoryService.ListAlgorithms(c.Request.Context(), factoryID, userID)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Success(c, algorithms)
}

func (h *FactoryHandler) GetAlgorithm(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	algorithm, err := h.factoryService.GetAlgorithm(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Success(c, algorithm)
}

func (h *FactoryHandler) DeleteAlgorithm(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.factoryService.DeleteAlgorithm(c.Request.Context(), id, userID); err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.SuccessWithMessage(c, "algorithm deleted", nil)
}

func (h *FactoryHandler) DashboardStats(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}

	stats, err := h.factoryService.DashboardStats(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Success(c, stats)
}
