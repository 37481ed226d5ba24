package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"beps/internal/config"
	"beps/internal/domain"
	"beps/internal/domain/models"
	contentModels "beps/internal/domain/models/content"
	contentSvc "beps/internal/domain/services/content"
	"beps/internal/httputil"
)

// ContentHandler handles hierarchy and content workflow requests
type ContentHandler struct {
	hierarchy contentSvc.HierarchyService
	workflow  contentSvc.WorkflowService
	rename    contentSvc.RenameService
	presence  contentSvc.PresenceProber
	logger    *slog.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(
	hierarchy contentSvc.HierarchyService,
	workflow contentSvc.WorkflowService,
	rename contentSvc.RenameService,
	presence contentSvc.PresenceProber,
	logger *slog.Logger,
) *ContentHandler {
	return &ContentHandler{
		hierarchy: hierarchy,
		workflow:  workflow,
		rename:    rename,
		presence:  presence,
		logger:    logger,
	}
}

// Hierarchy returns the content tree
// GET /api/contents/hierarchy?channel_id=&folder_id=&depth=&pages=&details=&presence=&managers=
func (h *ContentHandler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	channelID, err := queryInt64(r, "channel_id")
	if err != nil {
		handleError(w, err)
		return
	}
	folderID, err := queryInt64(r, "folder_id")
	if err != nil {
		handleError(w, err)
		return
	}
	depth, err := queryInt64(r, "depth")
	if err != nil {
		handleError(w, err)
		return
	}

	opts := contentSvc.TraverseOptions{
		ChannelID:       channelID,
		FolderID:        folderID,
		IncludePages:    queryBool(r, "pages", true),
		IncludeDetails:  queryBool(r, "details", true),
		IncludePresence: queryBool(r, "presence", false),
		IncludeManagers: queryBool(r, "managers", false),
	}
	if depth != nil {
		opts.Depth = int(*depth)
	}

	tree, err := h.hierarchy.Traverse(r.Context(), opts)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, tree)
}

// CreateChannel creates a channel
// POST /api/contents/channels
func (h *ContentHandler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req contentSvc.CreateChannelRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	channel, err := h.hierarchy.CreateChannel(r.Context(), actor, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, channel)
}

// CreateFolder creates a category or subfolder
// POST /api/contents/folders
func (h *ContentHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req contentSvc.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	folder, err := h.hierarchy.CreateFolder(r.Context(), actor, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// CreatePage creates an empty page
// POST /api/contents/pages
func (h *ContentHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req contentSvc.CreatePageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	page, err := h.hierarchy.CreatePage(r.Context(), actor, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, page)
}

// DeleteChannel soft-deletes a channel
// DELETE /api/contents/channels/{id}
func (h *ContentHandler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	h.softDelete(w, r, h.hierarchy.DeleteChannel)
}

// DeleteFolder soft-deletes a folder
// DELETE /api/contents/folders/{id}
func (h *ContentHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	h.softDelete(w, r, h.hierarchy.DeleteFolder)
}

// DeletePage soft-deletes a page
// DELETE /api/contents/pages/{id}
func (h *ContentHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	h.softDelete(w, r, h.hierarchy.DeletePage)
}

func (h *ContentHandler) softDelete(
	w http.ResponseWriter,
	r *http.Request,
	del func(ctx context.Context, actor models.Identity, id int64) error,
) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	if err := del(r.Context(), actor, id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameChannel renames a channel and rewrites every object key below it
// PUT /api/contents/channel/{id}/rename
func (h *ContentHandler) RenameChannel(w http.ResponseWriter, r *http.Request) {
	h.renameEntity(w, r, h.rename.RenameChannel)
}

// RenameFolder renames a category or folder
// PUT /api/contents/category/{id}/rename
func (h *ContentHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	h.renameEntity(w, r, h.rename.RenameFolder)
}

// RenamePage renames a page and its additionals
// PUT /api/contents/page/{id}/rename
func (h *ContentHandler) RenamePage(w http.ResponseWriter, r *http.Request) {
	h.renameEntity(w, r, h.rename.RenamePage)
}

func (h *ContentHandler) renameEntity(
	w http.ResponseWriter,
	r *http.Request,
	rename func(ctx context.Context, actor models.Identity, id int64, newName string) (*contentSvc.RenameResult, error),
) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	var req contentSvc.RenameRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	result, err := rename(r.Context(), actor, id, req.NewName)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// UploadPagePending stages a new page image
// POST /api/contents/page/{id}/upload-pending
func (h *ContentHandler) UploadPagePending(w http.ResponseWriter, r *http.Request) {
	h.uploadPending(w, r, contentModels.ContentTypePage)
}

// UploadAdditionalPending stages a new additional file
// POST /api/contents/additional/{id}/upload-pending
func (h *ContentHandler) UploadAdditionalPending(w http.ResponseWriter, r *http.Request) {
	h.uploadPending(w, r, contentModels.ContentTypeAdditional)
}

func (h *ContentHandler) uploadPending(w http.ResponseWriter, r *http.Request, contentType contentModels.ContentType) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	file, header, err := formFile(w, r)
	if err != nil {
		handleError(w, err)
		return
	}
	defer file.Close()

	pending, err := h.workflow.UploadPending(r.Context(), &contentSvc.UploadRequest{
		Actor:       actor,
		ContentType: contentType,
		TargetID:    id,
		Filename:    header.Filename,
		MimeType:    header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, pending)
}

// CreateAdditional numbers a new additional and stages its first upload
// POST /api/contents/page/{id}/additional
func (h *ContentHandler) CreateAdditional(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	pageID, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	file, header, err := formFile(w, r)
	if err != nil {
		handleError(w, err)
		return
	}
	defer file.Close()

	result, err := h.workflow.CreateAdditional(r.Context(), &contentSvc.CreateAdditionalRequest{
		Actor:    actor,
		PageID:   pageID,
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, result)
}

// PagePendingStatus reports whether a page has a staged version
// GET /api/contents/page/{id}/pending-status
func (h *ContentHandler) PagePendingStatus(w http.ResponseWriter, r *http.Request) {
	h.pendingStatus(w, r, contentModels.ContentTypePage)
}

// AdditionalPendingStatus reports whether an additional has a staged version
// GET /api/contents/additional/{id}/pending-status
func (h *ContentHandler) AdditionalPendingStatus(w http.ResponseWriter, r *http.Request) {
	h.pendingStatus(w, r, contentModels.ContentTypeAdditional)
}

func (h *ContentHandler) pendingStatus(w http.ResponseWriter, r *http.Request, contentType contentModels.ContentType) {
	id, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	status, err := h.workflow.PendingStatus(r.Context(), contentType, id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, status)
}

// ApprovePage promotes a page's pending version
// POST /api/contents/page/{id}/approve-update
func (h *ContentHandler) ApprovePage(w http.ResponseWriter, r *http.Request) {
	h.approve(w, r, contentModels.ContentTypePage)
}

// ApproveAdditional promotes an additional's pending version
// POST /api/contents/additional/{id}/approve-update
func (h *ContentHandler) ApproveAdditional(w http.ResponseWriter, r *http.Request) {
	h.approve(w, r, contentModels.ContentTypeAdditional)
}

func (h *ContentHandler) approve(w http.ResponseWriter, r *http.Request, contentType contentModels.ContentType) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.workflow.Approve(r.Context(), actor, contentType, id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// PageArchives lists archived versions of a page
// GET /api/contents/page/{id}/archives
func (h *ContentHandler) PageArchives(w http.ResponseWriter, r *http.Request) {
	h.archives(w, r, contentModels.ContentTypePage)
}

// AdditionalArchives lists archived versions of an additional
// GET /api/contents/additional/{id}/archives
func (h *ContentHandler) AdditionalArchives(w http.ResponseWriter, r *http.Request) {
	h.archives(w, r, contentModels.ContentTypeAdditional)
}

func (h *ContentHandler) archives(w http.ResponseWriter, r *http.Request, contentType contentModels.ContentType) {
	id, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	archives, err := h.workflow.ListArchives(r.Context(), contentType, id)
	if err != nil {
		handleError(w, err)
		return
	}
	if archives == nil {
		archives = []contentModels.ArchivedContent{}
	}
	httputil.RespondJSON(w, http.StatusOK, archives)
}

// DeletePageContent removes a page's published image
// DELETE /api/contents/page/{id}/content
func (h *ContentHandler) DeletePageContent(w http.ResponseWriter, r *http.Request) {
	h.deleteContent(w, r, contentModels.ContentTypePage)
}

// DeleteAdditional removes an additional's published file
// DELETE /api/contents/additional/{id}
func (h *ContentHandler) DeleteAdditional(w http.ResponseWriter, r *http.Request) {
	h.deleteContent(w, r, contentModels.ContentTypeAdditional)
}

func (h *ContentHandler) deleteContent(w http.ResponseWriter, r *http.Request, contentType contentModels.ContentType) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.workflow.DeleteContent(r.Context(), actor, contentType, id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAdditionals lists the additionals of a page
// GET /api/contents/page/{id}/additionals
func (h *ContentHandler) ListAdditionals(w http.ResponseWriter, r *http.Request) {
	pageID, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	additionals, err := h.workflow.ListAdditionals(r.Context(), pageID)
	if err != nil {
		handleError(w, err)
		return
	}
	if additionals == nil {
		additionals = []contentModels.PageAdditional{}
	}
	httputil.RespondJSON(w, http.StatusOK, additionals)
}

// GetAdditional returns one additional
// GET /api/contents/additional/{id}
func (h *ContentHandler) GetAdditional(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	additional, err := h.workflow.GetAdditional(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, additional)
}

// FilePresence probes the object store for a page or detail
// GET /api/contents/file/{id}/presence?detail=true
func (h *ContentHandler) FilePresence(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	presence, err := h.presence.Probe(r.Context(), id, queryBool(r, "detail", false))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, presence)
}

// FileURL returns a presigned download URL
// GET /api/contents/file/{id}/url?detail=true
func (h *ContentHandler) FileURL(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	url, err := h.presence.PresignedURL(r.Context(), id, queryBool(r, "detail", false))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// UploadDetail publishes the image of a page detail
// POST /api/contents/page-detail/{id}/upload-content
func (h *ContentHandler) UploadDetail(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	file, header, err := formFile(w, r)
	if err != nil {
		handleError(w, err)
		return
	}
	defer file.Close()

	detail, err := h.workflow.UploadDetail(r.Context(), &contentSvc.DetailUploadRequest{
		Actor:    actor,
		DetailID: id,
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, map[string]any{"detail": detail})
}

// DetailDownload returns a presigned link to a detail image
// GET /api/contents/page-detail/{id}/download
func (h *ContentHandler) DetailDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	download, err := h.workflow.DetailDownload(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, download)
}

// formFile reads the "file" part of a multipart upload.
func formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBodySize)
	if err := r.ParseMultipartForm(config.MaxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, &domain.PayloadTooLargeError{
				Message: fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit),
				Limit:   tooLarge.Limit,
			}
		}
		return nil, nil, &domain.ValidationError{Message: fmt.Sprintf("invalid multipart form: %v", err)}
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, &domain.ValidationError{Message: "file is required"}
	}
	return file, header, nil
}
