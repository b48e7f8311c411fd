// Package projects serves the completed-work portfolio canvassers show
// at the door. Image payloads live out of line in the blobs collection.
package projects

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/canvashub/canvashub/internal/app/policy/contentpolicy"
	blobstore "github.com/canvashub/canvashub/internal/app/store/blobs"
	counterstore "github.com/canvashub/canvashub/internal/app/store/counters"
	organizationstore "github.com/canvashub/canvashub/internal/app/store/organizations"
	projectstore "github.com/canvashub/canvashub/internal/app/store/projects"
	"github.com/canvashub/canvashub/internal/app/system/apperr"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/planlimits"
)

// Handler holds dependencies for the portfolio endpoints.
type Handler struct {
	Projects *projectstore.Store
	Orgs     *organizationstore.Store
	Blobs    *blobstore.Store
	Counters *counterstore.Store
	Log      *zap.Logger
}

func NewHandler(projects *projectstore.Store, orgs *organizationstore.Store, blobs *blobstore.Store, counters *counterstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Projects: projects, Orgs: orgs, Blobs: blobs, Counters: counters, Log: logger}
}

type imagePayload struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"` // base64
}

type createRequest struct {
	Title          string         `json:"title"`
	Category       string         `json:"category"`
	Description    string         `json:"description"`
	Location       string         `json:"location"`
	CompletionDate *time.Time     `json:"completion_date"`
	Featured       bool           `json:"featured"`
	Images         []imagePayload `json:"images"`
}

// Create handles POST /projects.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if req.Title == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("title is required"))
		return
	}

	orgID := actor.OrganizationID
	if orgID == "" || !contentpolicy.CanManageProjects(actor, orgID) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to manage the portfolio"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create project")
	defer cancel()

	org, err := h.Orgs.GetByOrgID(ctx, orgID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	limits := planlimits.ForPlan(org.Plan)

	count, err := h.Projects.CountByOrg(ctx, orgID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if !planlimits.Allows(limits.MaxProjects, int(count)) {
		httpjson.Error(w, h.Log, apperr.Limitf("plan allows at most %d projects", limits.MaxProjects))
		return
	}
	if len(req.Images) > limits.MaxProjectImages {
		httpjson.Error(w, h.Log, apperr.Limitf("plan allows at most %d images per project", limits.MaxProjectImages))
		return
	}

	projectID, err := h.Counters.NextScopedID(ctx, counterstore.KindProject, orgID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	imageIDs, err := h.storeImages(ctx, orgID, projectID, actor.Username, req.Images)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	project, err := h.Projects.Create(ctx, models.Project{
		ProjectID:      projectID,
		OrganizationID: orgID,
		Title:          req.Title,
		Category:       req.Category,
		Description:    req.Description,
		Location:       req.Location,
		CompletionDate: req.CompletionDate,
		IsFeatured:     req.Featured,
		ImageIDs:       imageIDs,
		CreatedBy:      actor.Username,
	})
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Created(w, project)
}

// List handles GET /projects with an optional ?category= filter.
// Featured projects sort first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	orgID := actor.OrganizationID
	if orgID == "" {
		orgID = r.URL.Query().Get("org_id")
	}
	if !contentpolicy.CanViewOrgContent(actor, orgID) || orgID == "" {
		httpjson.Error(w, h.Log, apperr.Deniedf("portfolio is organization-scoped"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list projects")
	defer cancel()

	projects, err := h.Projects.ListByOrg(ctx, orgID, r.URL.Query().Get("category"))
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"projects": projects, "count": len(projects)})
}

// Get handles GET /projects/{project_id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get project")
	defer cancel()

	project, err := h.loadViewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, project)
}

// Image handles GET /projects/{project_id}/images/{blob_id}.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "get project image")
	defer cancel()

	project, err := h.loadViewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	blobID := chi.URLParam(r, "blob_id")
	blob, err := h.Blobs.Get(ctx, blobID)
	if err != nil || blob.OwnerID != project.ProjectID {
		httpjson.Error(w, h.Log, apperr.NotFoundf("image %q not found", blobID))
		return
	}
	httpjson.OK(w, blob)
}

type updateRequest struct {
	Title          string         `json:"title"`
	Category       string         `json:"category"`
	Description    string         `json:"description"`
	Location       string         `json:"location"`
	CompletionDate *time.Time     `json:"completion_date"`
	Featured       bool           `json:"featured"`
	Images         []imagePayload `json:"images"`
}

// Update handles PUT /projects/{project_id}. Posting images replaces the
// existing set.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req updateRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if req.Title == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("title is required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "update project")
	defer cancel()

	project, err := h.loadManaged(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	imageIDs := project.ImageIDs
	if req.Images != nil {
		org, err := h.Orgs.GetByOrgID(ctx, project.OrganizationID)
		if err != nil {
			httpjson.Error(w, h.Log, err)
			return
		}
		limits := planlimits.ForPlan(org.Plan)
		if len(req.Images) > limits.MaxProjectImages {
			httpjson.Error(w, h.Log, apperr.Limitf("plan allows at most %d images per project", limits.MaxProjectImages))
			return
		}
		if _, err := h.Blobs.DeleteByOwner(ctx, models.BlobProjectImage, project.ProjectID); err != nil {
			httpjson.Error(w, h.Log, err)
			return
		}
		imageIDs, err = h.storeImages(ctx, project.OrganizationID, project.ProjectID, actor.Username, req.Images)
		if err != nil {
			httpjson.Error(w, h.Log, err)
			return
		}
	}

	err = h.Projects.Update(ctx, project.ProjectID, projectstore.Update{
		Title:          req.Title,
		Category:       req.Category,
		Description:    req.Description,
		Location:       req.Location,
		CompletionDate: req.CompletionDate,
		IsFeatured:     req.Featured,
		ImageIDs:       imageIDs,
	})
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "updated"})
}

// Delete handles DELETE /projects/{project_id}: the project and its
// images.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete project")
	defer cancel()

	project, err := h.loadManaged(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	if err := h.Projects.Delete(ctx, project.ProjectID); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if _, err := h.Blobs.DeleteByOwner(ctx, models.BlobProjectImage, project.ProjectID); err != nil {
		h.Log.Warn("project image cleanup failed", zap.String("project_id", project.ProjectID), zap.Error(err))
	}
	httpjson.OK(w, map[string]string{"status": "deleted"})
}

func (h *Handler) storeImages(ctx context.Context, orgID, projectID, uploader string, images []imagePayload) ([]string, error) {
	ids := make([]string, 0, len(images))
	for _, img := range images {
		id, err := h.Blobs.Put(ctx, orgID, models.BlobProjectImage, projectID, img.ContentType, img.Data, uploader)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *Handler) loadViewable(ctx context.Context, r *http.Request) (*models.Project, error) {
	actor, _ := auth.CurrentUser(r)
	projectID := chi.URLParam(r, "project_id")

	project, err := h.Projects.GetByProjectID(ctx, projectID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("project %q not found", projectID)
		}
		return nil, err
	}
	if !contentpolicy.CanViewOrgContent(actor, project.OrganizationID) {
		return nil, apperr.NotFoundf("project %q not found", projectID)
	}
	return project, nil
}

func (h *Handler) loadManaged(ctx context.Context, r *http.Request) (*models.Project, error) {
	actor, _ := auth.CurrentUser(r)

	project, err := h.loadViewable(ctx, r)
	if err != nil {
		return nil, err
	}
	if !contentpolicy.CanManageProjects(actor, project.OrganizationID) {
		return nil, apperr.Deniedf("not allowed to manage the portfolio")
	}
	return project, nil
}
