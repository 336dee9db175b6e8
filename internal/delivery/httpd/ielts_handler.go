package httpd

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/service"
)

func (h *Handler) ieltsRoutes(r chi.Router) {
	r.Get("/free-materials", h.FreeMaterials)

	r.Group(func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Get("/courses", h.ListCourses)
		r.Get("/materials", h.ListMaterials)
		r.With(RequireRole(models.RoleStudent)).Post("/enroll/{courseId}", h.Enroll)
		r.With(RequireRole(models.RoleStudent)).Get("/my", h.MyCourses)
		r.With(RequireRole(models.RoleStudent)).Get("/results", h.MyResults)
	})
}

func (h *Handler) ieltsMockRoutes(r chi.Router) {
	r.Use(h.Authenticate)

	r.Get("/tests/{courseId}", h.MockTests)
	r.With(RequireRole(models.RoleStudent)).Get("/results", h.MyResults)
	r.With(RequireRole(models.RoleStudent)).Get("/readiness", h.Readiness)
}

func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.services.IELTS.ListCourses(r.Context(), true)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", courses)
}

func (h *Handler) AdminListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.services.IELTS.ListCourses(r.Context(), false)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", courses)
}

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req models.CourseRequest
	if !h.decode(w, r, &req) {
		return
	}

	course, err := h.services.IELTS.CreateCourse(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, "Course created", course)
}

func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	var req models.CourseRequest
	if !h.decode(w, r, &req) {
		return
	}

	course, err := h.services.IELTS.UpdateCourse(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Course updated", course)
}

func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.services.IELTS.DeleteCourse(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Course deleted", nil)
}

func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	if err := h.services.IELTS.Enroll(r.Context(), actorFrom(r).UserID, chi.URLParam(r, "courseId")); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Enrolled successfully", nil)
}

func (h *Handler) MyCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.services.IELTS.MyCourses(r.Context(), actorFrom(r).UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", courses)
}

func (h *Handler) CreateMockTest(w http.ResponseWriter, r *http.Request) {
	var req models.MockTestRequest
	if !h.decode(w, r, &req) {
		return
	}

	mock, err := h.services.IELTS.CreateMockTest(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, "Mock test created", mock)
}

func (h *Handler) MockTests(w http.ResponseWriter, r *http.Request) {
	mocks, err := h.services.IELTS.MockTests(r.Context(), chi.URLParam(r, "courseId"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", mocks)
}

func (h *Handler) RecordResult(w http.ResponseWriter, r *http.Request) {
	var req models.ResultRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.services.IELTS.RecordResult(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, "Result recorded", result)
}

func (h *Handler) MyResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.services.IELTS.MyResults(r.Context(), actorFrom(r).UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", results)
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	readiness, err := h.services.IELTS.Readiness(r.Context(), actorFrom(r).UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", readiness)
}

func (h *Handler) FreeMaterials(w http.ResponseWriter, r *http.Request) {
	h.listMaterials(w, r, true)
}

func (h *Handler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	h.listMaterials(w, r, false)
}

func (h *Handler) AdminListMaterials(w http.ResponseWriter, r *http.Request) {
	h.listMaterials(w, r, false)
}

func (h *Handler) listMaterials(w http.ResponseWriter, r *http.Request, freeOnly bool) {
	materials, err := h.services.IELTS.ListMaterials(r.Context(), freeOnly)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", materials)
}

func (h *Handler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	req, file, ok := h.materialRequest(w, r)
	if !ok {
		return
	}
	if file != nil {
		defer file.Close()
	}
	if !h.validate(w, req) {
		return
	}

	material, err := h.services.IELTS.CreateMaterial(r.Context(), req, file.upload())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, "Material created", material)
}

// UpdateMaterial applies a partial update, so the create-time validation
// tags are not enforced.
func (h *Handler) UpdateMaterial(w http.ResponseWriter, r *http.Request) {
	req, file, ok := h.materialRequest(w, r)
	if !ok {
		return
	}
	if file != nil {
		defer file.Close()
	}

	material, err := h.services.IELTS.UpdateMaterial(r.Context(), chi.URLParam(r, "id"), req, file.upload())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Material updated", material)
}

func (h *Handler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	if err := h.services.IELTS.DeleteMaterial(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Material deleted", nil)
}

// materialRequest accepts either a JSON body or a multipart form with an
// optional "file" part.
func (h *Handler) materialRequest(w http.ResponseWriter, r *http.Request) (*models.MaterialRequest, *uploadedFile, bool) {
	req := &models.MaterialRequest{}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := decodeJSON(r, req); err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, "Invalid request body")
			return nil, nil, false
		}
		return req, nil, true
	}

	file, ok := h.optionalFormFile(w, r, "file")
	if !ok {
		return nil, nil, false
	}

	req.Title = r.FormValue("title")
	req.Description = r.FormValue("description")
	req.MaterialType = r.FormValue("material_type")
	req.FileURL = r.FormValue("file_url")
	req.CourseID = r.FormValue("course_id")
	req.IsFree, _ = strconv.ParseBool(r.FormValue("is_free"))
	return req, file, true
}

func (f *uploadedFile) upload() *service.FileUpload {
	if f == nil {
		return nil
	}
	return &service.FileUpload{
		FileName:    f.Name,
		ContentType: f.ContentType,
		Size:        f.Size,
		Content:     f,
	}
}
