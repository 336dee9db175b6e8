package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ilham-education/ilham-backend/internal/models"
)

func (h *Handler) notificationRoutes(r chi.Router) {
	r.Use(h.Authenticate)

	r.Get("/my", h.MyNotifications)
	r.Put("/my/read-all", h.MarkAllMyNotificationsRead)
	r.Put("/my/{id}/read", h.MarkMyNotificationRead)

	r.Group(func(r chi.Router) {
		r.Use(RequireRole(models.RoleAdmin))

		r.Get("/", h.ListNotifications)
		r.Post("/", h.CreateNotification)
		r.Get("/unread-counts", h.UnreadCounts)
		r.Put("/{id}/read", h.MarkNotificationRead)
		r.Delete("/{id}", h.DeleteNotification)
	})
}

func (h *Handler) reminderRoutes(r chi.Router) {
	r.Use(h.Authenticate, RequireRole(models.RoleAdmin))

	r.Get("/", h.ListReminders)
	r.Post("/", h.CreateReminder)
	r.Post("/push", h.PushReminder)
	r.Delete("/{id}", h.DeleteReminder)
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.services.Notifications.ListAll(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", notifications)
}

func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNotificationRequest
	if !h.decode(w, r, &req) {
		return
	}

	notification, err := h.services.Notifications.Create(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, "Notification sent", notification)
}

func (h *Handler) UnreadCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.services.Notifications.UnreadCounts(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", counts)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Notifications.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Notification marked as read", nil)
}

func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Notifications.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Notification deleted", nil)
}

func (h *Handler) MyNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.services.Notifications.ListMine(r.Context(), actorFrom(r).UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", notifications)
}

func (h *Handler) MarkMyNotificationRead(w http.ResponseWriter, r *http.Request) {
	err := h.services.Notifications.MarkMineRead(r.Context(), actorFrom(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Notification marked as read", nil)
}

func (h *Handler) MarkAllMyNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.services.Notifications.MarkAllMineRead(r.Context(), actorFrom(r).UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "All notifications marked as read", map[string]int64{"updated": n})
}

func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.services.Reminders.List(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", reminders)
}

func (h *Handler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReminderRequest
	if !h.decode(w, r, &req) {
		return
	}

	reminder, err := h.services.Reminders.Create(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, "Reminder created", reminder)
}

func (h *Handler) PushReminder(w http.ResponseWriter, r *http.Request) {
	var req models.PushReminderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "Invalid request body")
		return
	}

	// the service owns the "Missing data" message for empty fields
	notification, err := h.services.Reminders.Push(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Reminder sent", notification)
}

func (h *Handler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Reminders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Reminder deleted", nil)
}
