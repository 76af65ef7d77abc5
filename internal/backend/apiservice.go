package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/jo-hoe/gophotos/internal/backend/auth"
	"github.com/jo-hoe/gophotos/internal/backend/storage"
	"github.com/jo-hoe/gophotos/internal/core"
	"github.com/labstack/echo/v4"
)

const uploadsPrefix = "/uploads"

type APIService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
		config:      config,
	}
}

func (service *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})
	e.GET(uploadsPrefix+"/*", service.uploadsHandler)

	authGroup := e.Group("/api/auth")
	authGroup.POST("/register", service.registerHandler)
	authGroup.POST("/login", service.loginHandler)

	api := e.Group("/api", auth.Middleware(service.coreService.Tokens()))
	api.POST("/images/upload", service.uploadImageHandler)
	api.GET("/images", service.listImagesHandler)
	api.GET("/images/:id", service.getImageHandler)
	api.POST("/images/:id/edit", service.editImageHandler)
	api.DELETE("/images/:id", service.deleteImageHandler)
	api.POST("/images/:id/tags", service.addTagHandler)
	api.DELETE("/images/:id/tags/:tagId", service.removeTagHandler)
	api.GET("/tags", service.listTagsHandler)
	api.POST("/chat/search", service.searchHandler)
	api.GET("/chat/suggestions", service.suggestionsHandler)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// respondError maps core error classes onto status codes.
func respondError(c echo.Context, handler string, err error) error {
	status, message := http.StatusInternalServerError, "request could not be processed"
	switch {
	case errors.Is(err, core.ErrValidation):
		status, message = http.StatusBadRequest, "invalid request"
	case errors.Is(err, core.ErrConflict):
		status, message = http.StatusConflict, "already exists"
	case errors.Is(err, core.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, core.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	}

	if status >= http.StatusInternalServerError {
		slog.Error(handler+": request failed", "status", status, "error", err)
	} else {
		slog.Warn(handler+": request rejected", "status", status, "error", err)
	}
	return c.JSON(status, errorResponse{Error: message, Details: err.Error()})
}

// bindRequest decodes and validates the body; any failure is a validation error.
func bindRequest(c echo.Context, request any) error {
	if err := c.Bind(request); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", core.ErrValidation, err)
	}
	if err := c.Validate(request); err != nil {
		return fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	return nil
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", core.ErrValidation, name, c.Param(name))
	}
	return id, nil
}

func currentUser(c echo.Context) (int64, error) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return 0, fmt.Errorf("%w: no authenticated user", core.ErrUnauthorized)
	}
	return userID, nil
}

// fileURL builds the public address of a stored file.
func (service *APIService) fileURL(c echo.Context, key string) string {
	base := strings.TrimSuffix(service.config.PublicBaseURL, "/")
	if base == "" {
		base = c.Scheme() + "://" + c.Request().Host
	}
	return base + uploadsPrefix + "/" + key
}

func (service *APIService) uploadsHandler(c echo.Context) error {
	key := c.Param("*")
	data, err := service.coreService.Storage().Read(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			slog.Debug("uploadsHandler: file not available", "key", key, "error", err)
			return c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
		}
		slog.Error("uploadsHandler: failed to read file", "key", key, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to read file"})
	}

	contentType := mime.TypeByExtension(strings.ToLower(path.Ext(key)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return c.Blob(http.StatusOK, contentType, data)
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (service *APIService) registerHandler(c echo.Context) error {
	var request registerRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, "registerHandler", err)
	}
	if _, err := service.coreService.Register(c.Request().Context(), request.Username, request.Email, request.Password); err != nil {
		return respondError(c, "registerHandler", err)
	}
	return c.JSON(http.StatusCreated, messageResponse{Message: "user registered"})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

func (service *APIService) loginHandler(c echo.Context) error {
	var request loginRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, "loginHandler", err)
	}
	token, err := service.coreService.Login(c.Request().Context(), request.Username, request.Password)
	if err != nil {
		return respondError(c, "loginHandler", err)
	}
	return c.JSON(http.StatusOK, loginResponse{AccessToken: token})
}
