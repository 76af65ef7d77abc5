package backend

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jo-hoe/gophotos/internal/backend/database"
	"github.com/jo-hoe/gophotos/internal/backend/search"
	"github.com/jo-hoe/gophotos/internal/core"
	"github.com/labstack/echo/v4"
)

type tagResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type imageResponse struct {
	ID           int64         `json:"id"`
	ThumbnailURL string        `json:"thumbnail_url"`
	OriginalURL  string        `json:"original_url"`
	Filename     string        `json:"filename"`
	UploadedAt   time.Time     `json:"uploaded_at"`
	Tags         []tagResponse `json:"tags"`
}

type imageDetailResponse struct {
	imageResponse
	MimeType   string            `json:"mime_type"`
	Size       int64             `json:"size"`
	Resolution string            `json:"resolution"`
	Exif       map[string]string `json:"exif"`
}

type searchHitResponse struct {
	imageResponse
	MatchReason string `json:"match_reason"`
}

type searchResponse struct {
	Message string              `json:"message"`
	Images  []searchHitResponse `json:"images"`
	Intent  search.Intent       `json:"intent"`
}

func toTagResponses(tags []*database.Tag) []tagResponse {
	result := make([]tagResponse, 0, len(tags))
	for _, tag := range tags {
		result = append(result, tagResponse{ID: tag.ID, Name: tag.Name})
	}
	return result
}

func (service *APIService) toImageResponse(c echo.Context, image *database.Image) imageResponse {
	return imageResponse{
		ID:           image.ID,
		ThumbnailURL: service.fileURL(c, image.ThumbnailPath),
		OriginalURL:  service.fileURL(c, image.StoragePath),
		Filename:     image.OriginalFilename,
		UploadedAt:   image.UploadedAt,
		Tags:         toTagResponses(image.Tags),
	}
}

type uploadResponse struct {
	Message string `json:"message"`
	ImageID int64  `json:"imageId"`
}

func (service *APIService) uploadImageHandler(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, "uploadImageHandler", err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return respondError(c, "uploadImageHandler", fmt.Errorf("%w: no file in request", core.ErrValidation))
	}
	if file.Filename == "" {
		return respondError(c, "uploadImageHandler", fmt.Errorf("%w: no file selected", core.ErrValidation))
	}

	src, err := file.Open()
	if err != nil {
		return respondError(c, "uploadImageHandler", fmt.Errorf("%w: failed to open uploaded file: %w", core.ErrProcessing, err))
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("uploadImageHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	data, err := io.ReadAll(src)
	if err != nil {
		return respondError(c, "uploadImageHandler", fmt.Errorf("%w: failed to read uploaded file: %w", core.ErrProcessing, err))
	}

	imageID, err := service.coreService.UploadImage(c.Request().Context(), userID, core.UploadRequest{
		Filename: file.Filename,
		MimeType: file.Header.Get(echo.HeaderContentType),
		Data:     data,
	})
	if err != nil {
		return respondError(c, "uploadImageHandler", err)
	}
	return c.JSON(http.StatusCreated, uploadResponse{Message: "image uploaded", ImageID: imageID})
}

func (service *APIService) listImagesHandler(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, "listImagesHandler", err)
	}
	images, err := service.coreService.ListImages(c.Request().Context(), userID, c.QueryParam("tag"))
	if err != nil {
		return respondError(c, "listImagesHandler", err)
	}

	result := make([]imageResponse, 0, len(images))
	for _, image := range images {
		result = append(result, service.toImageResponse(c, image))
	}
	return c.JSON(http.StatusOK, result)
}

func (service *APIService) getImageHandler(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, "getImageHandler", err)
	}
	imageID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, "getImageHandler", err)
	}
	image, err := service.coreService.GetImage(c.Request().Context(), userID, imageID)
	if err != nil {
		return respondError(c, "getImageHandler", err)
	}

	return c.JSON(http.StatusOK, imageDetailResponse{
		imageResponse: service.toImageResponse(c, image),
		MimeType:      image.MimeType,
		Size:          image.Size,
		Resolution:    image.Resolution,
		Exif:          image.Exif,
	})
}

type cropRequest struct {
	X      int `json:"x" validate:"min=0"`
	Y      int `json:"y" validate:"min=0"`
	Width  int `json:"width" validate:"min=1"`
	Height int `json:"height" validate:"min=1"`
}

type editRequest struct {
	Crop       *cropRequest `json:"crop"`
	Brightness float64      `json:"brightness" validate:"min=-100,max=100"`
	Contrast   float64      `json:"contrast" validate:"min=-100,max=100"`
	Saturation float64      `json:"saturation" validate:"min=-100,max=100"`
}

type editResponse struct {
	Message      string `json:"message"`
	ThumbnailURL string `json:"thumbnail_url"`
	OriginalURL  string `json:"original_url"`
	Resolution   string `json:"resolution"`
	Size         int64  `json:"size"`
}

func (service *APIService) editImageHandler(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, "editImageHandler", err)
	}
	imageID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, "editImageHandler", err)
	}
	var request editRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, "editImageHandler", err)
	}

	edit := core.EditRequest{
		Brightness: request.Brightness,
		Contrast:   request.Contrast,
		Saturation: request.Saturation,
	}
	if request.Crop != nil {
		edit.Crop = &core.CropRect{X: request.Crop.X, Y: request.Crop.Y, Width: request.Crop.Width, Height: request.Crop.Height}
	}
	image, err := service.coreService.EditImage(c.Request().Context(), userID, imageID, edit)
	if err != nil {
		return respondError(c, "editImageHandler", err)
	}

	// files keep their names, so clients need a changed URL to refetch them
	version := fmt.Sprintf("?v=%d", time.Now().Unix())
	return c.JSON(http.StatusOK, editResponse{
		Message:      "image updated",
		ThumbnailURL: service.fileURL(c, image.ThumbnailPath) + version,
		OriginalURL:  service.fileURL(c, image.StoragePath) + version,
		Resolution:   image.Resolution,
		Size:         image.Size,
	})
}

func (service *APIService) deleteImageHandler(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, "deleteImageHandler", err)
	}
	imageID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, "deleteImageHandler", err)
	}
	if err := service.coreService.DeleteImage(c.Request().Context(), userID, imageID); err != nil {
		return respondError(c, "deleteImageHandler", err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "image deleted"})
}

type addTagRequest struct {
	Name string `json:"name" validate:"required"`
}

func (service *APIService) addTagHandler(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, "addTagHandler", err)
	}
	imageID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, "addTagHandler", err)
	}
	var request addTagRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, "addTagHandler", err)
	}

	tag, err := service.coreService.AddTag(c.Request().Context(), userID, imageID, request.Name)
	if err != nil {
		return respondError(c, "addTagHandler", err)
	}
	return c.JSON(http.StatusOK, tagResponse{ID: tag.ID, Name: tag.Name})
}

func (service *APIService) removeTagHandler(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, "removeTagHandler", err)
	}
	imageID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, "removeTagHandler", err)
	}
	tagID, err := pathID(c, "tagId")
	if err != nil {
		return respondError(c, "removeTagHandler", err)
	}
	if err := service.coreService.RemoveTag(c.Request().Context(), userID, imageID, tagID); err != nil {
		return respondError(c, "removeTagHandler", err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "tag removed"})
}

func (service *APIService) listTagsHandler(c echo.Context) error {
	tags, err := service.coreService.ListTags(c.Request().Context())
	if err != nil {
		return respondError(c, "listTagsHandler", err)
	}
	return c.JSON(http.StatusOK, toTagResponses(tags))
}

type searchRequest struct {
	Query string `json:"query" validate:"required"`
}

func (service *APIService) searchHandler(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, "searchHandler", err)
	}
	var request searchRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, "searchHandler", err)
	}

	result, err := service.coreService.Search(c.Request().Context(), userID, request.Query)
	if err != nil {
		return respondError(c, "searchHandler", err)
	}

	hits := make([]searchHitResponse, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, searchHitResponse{
			imageResponse: service.toImageResponse(c, hit.Image),
			MatchReason:   hit.MatchReason,
		})
	}
	return c.JSON(http.StatusOK, searchResponse{Message: result.Message, Images: hits, Intent: result.Intent})
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

func (service *APIService) suggestionsHandler(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, "suggestionsHandler", err)
	}
	suggestions, err := service.coreService.Suggestions(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, "suggestionsHandler", err)
	}
	return c.JSON(http.StatusOK, suggestionsResponse{Suggestions: suggestions})
}
