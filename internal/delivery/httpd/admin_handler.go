package httpd

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ilham-education/ilham-backend/internal/models"
)

func (h *Handler) adminRoutes(r chi.Router) {
	r.Use(h.Authenticate)

	// finance staff record payments without the rest of the admin surface
	r.With(RequireRole(models.RoleAdmin, models.RoleFinance)).Post("/payment", h.RecordPayment)

	r.Group(func(r chi.Router) {
		r.Use(RequireRole(models.RoleAdmin))

		r.Get("/dashboard", h.AdminDashboard)

		r.Get("/students", h.ListStudents)
		r.Get("/students/list", h.ListStudents)
		r.Post("/students/create", h.CreateStudent)
		r.Get("/students/{id}", h.GetStudent)
		r.Put("/students/{id}", h.UpdateStudent)
		r.Delete("/students/{id}", h.DeleteStudent)
		r.Post("/students/{id}/upload-photo", h.UploadStudentPhoto)
		r.Get("/students/{id}/applications", h.StudentApplications)
		r.Get("/students/{id}/results", h.StudentResults)
		r.Get("/students/{id}/invoices", h.StudentInvoices)

		r.Get("/universities", h.ListUniversities)
		r.Get("/universities/list", h.ListActiveUniversities)
		r.Post("/university", h.CreateUniversity)
		r.Post("/universities/create", h.CreateUniversity)
		r.Get("/universities/{id}", h.GetUniversity)
		r.Put("/universities/{id}", h.UpdateUniversity)
		r.Delete("/universities/{id}", h.DeleteUniversity)

		r.Get("/applications", h.ListApplications)
		r.Post("/applications/create", h.AdminCreateApplication)
		r.Put("/applications/{id}", h.AdminUpdateApplication)
		r.Post("/application/status", h.SetApplicationStatus)

		r.Post("/invoice", h.CreateInvoice)
		r.Get("/invoices", h.ListInvoices)
		r.Get("/payments", h.ListPayments)

		r.Get("/unpaid-invoices", h.UnpaidInvoices)
		r.Get("/unread-notifications", h.UnreadCounts)
		r.Get("/student-applications-summary", h.ApplicationsSummary)

		r.Get("/ielts/courses", h.AdminListCourses)
		r.Post("/ielts/course", h.CreateCourse)
		r.Post("/ielts/courses/create", h.CreateCourse)
		r.Put("/ielts/courses/{id}", h.UpdateCourse)
		r.Delete("/ielts/courses/{id}", h.DeleteCourse)
		r.Post("/ielts/mock", h.CreateMockTest)
		r.Post("/ielts/result", h.RecordResult)

		r.Get("/ielts/materials", h.AdminListMaterials)
		r.Post("/ielts/materials/create", h.CreateMaterial)
		r.Put("/ielts/materials/{id}", h.UpdateMaterial)
		r.Delete("/ielts/materials/{id}", h.DeleteMaterial)
	})
}

func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.services.Dashboard.Stats(r.Context(), time.Now())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", stats)
}

func (h *Handler) ListUniversities(w http.ResponseWriter, r *http.Request) {
	h.listUniversities(w, r, false)
}

func (h *Handler) ListActiveUniversities(w http.ResponseWriter, r *http.Request) {
	h.listUniversities(w, r, true)
}

func (h *Handler) listUniversities(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	universities, err := h.services.Universities.List(r.Context(), activeOnly)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", universities)
}

func (h *Handler) GetUniversity(w http.ResponseWriter, r *http.Request) {
	university, err := h.services.Universities.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", university)
}

func (h *Handler) CreateUniversity(w http.ResponseWriter, r *http.Request) {
	var req models.UniversityRequest
	if !h.decode(w, r, &req) {
		return
	}

	university, err := h.services.Universities.Create(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, "University created", university)
}

func (h *Handler) UpdateUniversity(w http.ResponseWriter, r *http.Request) {
	var req models.UniversityRequest
	if !h.decode(w, r, &req) {
		return
	}

	university, err := h.services.Universities.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "University updated", university)
}

func (h *Handler) DeleteUniversity(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Universities.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "University deleted", nil)
}
