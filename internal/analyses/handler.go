package analyses

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-gap-analyzer/internal/extract"
	"resume-gap-analyzer/internal/gapanalysis"
	"resume-gap-analyzer/internal/input"
	"resume-gap-analyzer/internal/shared/server/respond"
	"resume-gap-analyzer/internal/shared/storage/object"
	"resume-gap-analyzer/internal/shared/telemetry"
)

const maxUploadSize = extract.MaxResumeBytes + 1<<20

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
	// Store keeps uploaded resumes. Uploads are extracted in memory when nil.
	Store object.ObjectStore
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, store object.ObjectStore) *Handler {
	return &Handler{Svc: svc, Store: store}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses", h.create)
	rg.POST("/analyses/upload", h.upload)
	rg.GET("/analyses", h.list)
	rg.GET("/analyses/:id", h.get)
}

func (h *Handler) create(c *gin.Context) {
	payload, err := input.Decode(c.Request.Body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.submit(c, payload)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.writeError(c, &gapanalysis.InputError{Field: "file", Reason: "is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.writeError(c, &gapanalysis.InputError{Field: "file", Reason: "could not be read"})
		return
	}
	defer file.Close()

	text, err := h.extractUpload(c, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.submit(c, input.Payload{
		ResumeText:        text,
		TargetRole:        c.PostForm("targetRole"),
		TargetCompany:     c.PostForm("targetCompany"),
		ExperienceLevel:   c.PostForm("experienceLevel"),
		AdditionalContext: c.PostForm("additionalContext"),
		NebiusAPIKey:      c.PostForm("nebiusApiKey"),
		APIKey:            c.PostForm("apiKey"),
	})
}

func (h *Handler) extractUpload(c *gin.Context, fileName, contentType string, r io.Reader) (string, error) {
	ctx := c.Request.Context()
	if h.Store == nil {
		data, err := io.ReadAll(io.LimitReader(r, extract.MaxResumeBytes+1))
		if err != nil {
			return "", err
		}
		return extract.ExtractTextFromBytes(ctx, data, contentType, fileName)
	}

	key, _, mimeType, err := h.Store.Save(ctx, object.NamespaceUploads, fileName, r)
	if err != nil {
		return "", err
	}
	telemetry.Info("analysis.upload_stored", map[string]any{
		"request_id": telemetry.RequestID(ctx),
		"key":        key,
		"mime_type":  mimeType,
	})
	return extract.ExtractText(ctx, h.Store, key, mimeType, fileName)
}

func (h *Handler) submit(c *gin.Context, payload input.Payload) {
	req := gapanalysis.Request{
		ResumeText:        payload.ResumeText,
		TargetRole:        payload.TargetRole,
		TargetCompany:     payload.TargetCompany,
		ExperienceLevel:   payload.ExperienceLevel,
		AdditionalContext: payload.AdditionalContext,
	}
	ctx := c.Request.Context()

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		analysis, err := h.Svc.Enqueue(ctx, SourceAPI, req)
		if err != nil {
			h.writeError(c, err)
			return
		}
		respond.JSON(c, http.StatusAccepted, gin.H{
			"analysisId": analysis.ID,
			"status":     analysis.Status,
		})
		return
	}

	analysis, err := h.Svc.Run(ctx, SourceAPI, req, payload.Credential())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, analysis)
}

func (h *Handler) get(c *gin.Context) {
	analysis, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, analysis)
}

func (h *Handler) list(c *gin.Context) {
	limit := 0
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	items, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]gin.H, 0, len(items))
	for _, a := range items {
		item := gin.H{
			"analysisId": a.ID,
			"status":     a.Status,
			"targetRole": a.TargetRole,
			"createdAt":  a.CreatedAt,
		}
		if a.Mode != "" {
			item["mode"] = a.Mode
		}
		if a.OverallScore != nil {
			item["overallScore"] = *a.OverallScore
		}
		if a.Report != nil {
			item["summary"] = a.Report.Summary
		}
		resp = append(resp, item)
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var inputErr *gapanalysis.InputError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &inputErr):
		var details any
		if inputErr.Field != "" {
			details = []map[string]string{{"field": inputErr.Field, "issue": strings.TrimSpace(inputErr.Reason)}}
		}
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, inputErr.Error(), details)
	case errors.Is(err, extract.ErrUnsupportedType),
		errors.Is(err, extract.ErrEmptyText),
		errors.Is(err, extract.ErrTooLarge),
		errors.As(err, &maxBytesErr):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
	case errors.Is(err, gapanalysis.ErrMissingCredential):
		respond.Error(c, http.StatusUnprocessableEntity, ErrorCodeCredentialRequired, "a completion service credential is required", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "analysis not found", nil)
	case errors.Is(err, ErrQueueNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, ErrorCodeQueueNotConfigured, "asynchronous analysis is not available", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "analysis failed", nil)
	}
}
