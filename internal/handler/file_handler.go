package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modelfactory/portal/internal/service"
	"github.com/modelfactory/portal/pkg/logger"
	"github.com/modelfactory/portal/pkg/response"
)

type FileHandler struct {
	fileService service.FileService
	maxSize     int64
}

func NewFileHandler(fileService service.FileService, maxSize int64) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		maxSize:     maxSize,
	}
}

// Upload attaches a multipart file to a model. The form carries the
// file under "file" and its declared type under "file_type".
func (h *FileHandler) Upload(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	modelID, ok := pathID(c, "id")
	if !ok {
		return
	}

	fileType := c.PostForm("file_type")
	if fileType == "" {
		response.Error(c, http.StatusBadRequest, "file_type is required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "file is required")
		return
	}
	if h.maxSize > 0 && fileHeader.Size > h.maxSize {
		response.Error(c, http.StatusRequestEntityTooLarge, "file exceeds upload size limit")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		logger.Log.Error("Failed to open uploaded file", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to read uploaded file")
		return
	}
	defer src.Close()

	file, err := h.fileService.Attach(c.Request.Context(), modelID, userID, fileType, fileHeader.Filename, src, fileHeader.Size)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Created(c, file)
}

func (h *FileHandler) List(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	modelID, ok := pathID(c, "id")
	if !ok {
		return
	}

	files, err := h.fileService.ListByModel(c.Request.Context(), modelID, userID)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Success(c, files)
}

// Download returns a short-lived presigned URL for the blob
func (h *FileHandler) Download(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c, "id")
	if !ok {
		return
	}

	url, err := h.fileService.DownloadURL(c.Request.Context(), fileID, userID)
	if err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.Success(c, gin.H{"download_url": url})
}

func (h *FileHandler) Delete(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.fileService.Detach(c.Request.Context(), fileID, userID); err != nil {
		response.Error(c, service.MapServiceError(err), err.Error())
		return
	}
	response.SuccessWithMessage(c, "file deleted", nil)
}
