package httpd

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ilham-education/ilham-backend/internal/models"
)

// documentRoutes are open to every role; the document service decides who
// may touch which student's files.
func (h *Handler) documentRoutes(r chi.Router) {
	r.Use(h.Authenticate)

	r.Post("/upload", h.UploadDocument)
	r.Get("/my-documents", h.MyDocuments)
	r.Get("/student/{studentId}", h.StudentDocuments)
	r.Get("/{id}", h.GetDocument)
	r.Get("/{id}/download", h.DownloadDocument)
	r.Delete("/{id}", h.DeleteDocument)

	r.Group(func(r chi.Router) {
		r.Use(RequireRole(models.RoleAdmin))

		r.Get("/", h.ListDocuments)
		r.Put("/{id}/verify", h.VerifyDocument)
		r.Put("/{id}/unverify", h.UnverifyDocument)
	})
}

func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	file, ok := h.formFile(w, r, "file")
	if !ok {
		return
	}
	defer file.Close()

	req := &models.UploadDocumentRequest{
		StudentID:    r.FormValue("student_id"),
		DocumentType: r.FormValue("document_type"),
		DocumentName: r.FormValue("document_name"),
		FileName:     file.Name,
		ContentType:  file.ContentType,
		Size:         file.Size,
	}

	doc, err := h.services.Documents.Upload(r.Context(), actorFrom(r), req, file)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, "Document uploaded", doc)
}

func (h *Handler) MyDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.services.Documents.ListMine(r.Context(), actorFrom(r).UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", docs)
}

func (h *Handler) StudentDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.services.Documents.ListByStudent(r.Context(), actorFrom(r), chi.URLParam(r, "studentId"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", docs)
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docs, err := h.services.Documents.List(r.Context(), models.DocumentFilter{
		StudentID:    q.Get("student_id"),
		DocumentType: q.Get("document_type"),
		Verified:     boolQueryParam(r, "verified"),
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", docs)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.services.Documents.Get(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", doc)
}

func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, body, size, err := h.services.Documents.Open(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.DocumentName}))
	if size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn().Err(err).Str("document_id", doc.ID).Msg("Document download interrupted")
	}
}

func (h *Handler) VerifyDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.services.Documents.Verify(r.Context(), chi.URLParam(r, "id"), actorFrom(r).UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Document verified", doc)
}

func (h *Handler) UnverifyDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.services.Documents.Unverify(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Document unverified", doc)
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Documents.Delete(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Document deleted", nil)
}
