package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/verdantiq/labelproof-backend/internal/http/response"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
	"github.com/verdantiq/labelproof-backend/internal/services"
)

type PanelHandler struct {
	log    *logger.Logger
	checks services.CheckService
}

func NewPanelHandler(log *logger.Logger, checks services.CheckService) *PanelHandler {
	return &PanelHandler{
		log:    log.With("handler", "PanelHandler"),
		checks: checks,
	}
}

// UploadPanel is the buffered multipart path: field "file" plus a
// "panel_type" form value.
func (h *PanelHandler) UploadPanel(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	checkID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	panelType := strings.TrimSpace(c.Request.FormValue("panel_type"))
	if panelType == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_panel_type", nil)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	sniffFile, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "could_not_read_file", err)
		return
	}
	buf := make([]byte, 512)
	n, _ := sniffFile.Read(buf)
	_ = sniffFile.Close()
	if mimeType == "" {
		mimeType = http.DetectContentType(buf[:n])
	}

	r, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "could_not_read_file", err)
		return
	}
	defer r.Close()

	panel, err := h.checks.AddPanel(c.Request.Context(), ownerID, checkID, services.AddPanelInput{
		PanelType:    panelType,
		OriginalName: fh.Filename,
		MimeType:     mimeType,
		SizeBytes:    fh.Size,
		File:         r,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, panel)
}

type signPanelRequest struct {
	PanelType    string `json:"panel_type"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
}

// SignPanelUpload issues a direct-to-bucket upload URL for large panels.
func (h *PanelHandler) SignPanelUpload(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	checkID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req signPanelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	signed, err := h.checks.SignPanelUpload(c.Request.Context(), ownerID, checkID, req.PanelType, req.OriginalName, req.MimeType)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, signed)
}
