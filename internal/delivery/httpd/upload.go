package httpd

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
)

const multipartMemory = 8 << 20

// uploadedFile is one file part of a multipart request. Close also removes
// any temporary files the form was spooled to.
type uploadedFile struct {
	multipart.File
	Name        string
	ContentType string
	Size        int64
	form        *multipart.Form
}

func (f *uploadedFile) Close() error {
	err := f.File.Close()
	if f.form != nil {
		f.form.RemoveAll()
	}
	return err
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if r.MultipartForm != nil {
		return true
	}

	// a little headroom for the non-file fields
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, codeValidation, "File too large")
			return false
		}
		writeError(w, http.StatusBadRequest, codeValidation, "Invalid multipart form")
		return false
	}
	return true
}

// formFile returns the named file part, writing a 400 when it is missing.
func (h *Handler) formFile(w http.ResponseWriter, r *http.Request, field string) (*uploadedFile, bool) {
	file, ok := h.optionalFormFile(w, r, field)
	if !ok {
		return nil, false
	}
	if file == nil {
		writeError(w, http.StatusBadRequest, codeValidation, "No file uploaded")
		return nil, false
	}
	return file, true
}

// optionalFormFile is formFile for parts that may be left out; a missing
// part yields a nil file.
func (h *Handler) optionalFormFile(w http.ResponseWriter, r *http.Request, field string) (*uploadedFile, bool) {
	if !h.parseMultipart(w, r) {
		return nil, false
	}

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "Invalid file upload")
		return nil, false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(header.Filename)); byExt != "" {
			contentType = byExt
		}
	}

	return &uploadedFile{
		File:        file,
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		form:        r.MultipartForm,
	}, true
}
