package repotest

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
)

type applicationRepo struct{ s *Store }

// activePairTakenLocked mirrors the partial unique index on
// applications(student_id, university_id) WHERE status <> 'Rejected'.
func (s *Store) activePairTakenLocked(skipID, studentID, universityID string, status models.ApplicationStatus) bool {
	if status == models.StatusRejected {
		return false
	}
	for id, a := range s.applications {
		if id == skipID || a.Status == models.StatusRejected {
			continue
		}
		if a.StudentID == studentID && a.UniversityID == universityID {
			return true
		}
	}
	return false
}

func (s *Store) deleteApplicationLocked(id string) {
	delete(s.applications, id)
	kept := s.history[:0]
	for _, h := range s.history {
		if h.ApplicationID != id {
			kept = append(kept, h)
		}
	}
	s.history = kept
}

func (r *applicationRepo) Create(ctx context.Context, app *models.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("applications.Create"); err != nil {
		return err
	}
	if _, ok := r.s.students[app.StudentID]; !ok {
		return foreignKeyViolation("applications_student_id_fkey")
	}
	if _, ok := r.s.universities[app.UniversityID]; !ok {
		return foreignKeyViolation("applications_university_id_fkey")
	}
	if r.s.activePairTakenLocked("", app.StudentID, app.UniversityID, app.Status) {
		return uniqueViolation(repository.ActivePairIndex)
	}
	r.s.applications[app.ID] = *app
	return nil
}

func (r *applicationRepo) GetByID(ctx context.Context, id string) (*models.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.applications[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *applicationRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Application, error) {
	return r.GetByID(ctx, id)
}

func (r *applicationRepo) LockPair(ctx context.Context, studentID, universityID string) ([]models.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Application
	for _, a := range r.s.applications {
		if a.StudentID == studentID && a.UniversityID == universityID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *applicationRepo) DeleteRejected(ctx context.Context, studentID, universityID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, a := range r.s.applications {
		if a.StudentID == studentID && a.UniversityID == universityID && a.Status == models.StatusRejected {
			r.s.deleteApplicationLocked(id)
			n++
		}
	}
	return n, nil
}

func (r *applicationRepo) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, remark string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("applications.UpdateStatus"); err != nil {
		return err
	}
	a, ok := r.s.applications[id]
	if !ok {
		return nil
	}
	if r.s.activePairTakenLocked(id, a.StudentID, a.UniversityID, status) {
		return uniqueViolation(repository.ActivePairIndex)
	}
	a.Status = status
	a.CounselorRemark = remark
	a.UpdatedAt = time.Now()
	r.s.applications[id] = a
	return nil
}

func (r *applicationRepo) UpdateUniversity(ctx context.Context, id, universityID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.applications[id]
	if !ok {
		return nil
	}
	if r.s.activePairTakenLocked(id, a.StudentID, universityID, a.Status) {
		return uniqueViolation(repository.ActivePairIndex)
	}
	a.UniversityID = universityID
	a.UpdatedAt = time.Now()
	r.s.applications[id] = a
	return nil
}

func (r *applicationRepo) details(studentID string) []models.ApplicationWithDetails {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.ApplicationWithDetails{}
	for _, a := range r.s.applications {
		if studentID != "" && a.StudentID != studentID {
			continue
		}
		d := models.ApplicationWithDetails{Application: a}
		d.StudentName = r.s.students[a.StudentID].FullName
		d.UniversityName = r.s.universities[a.UniversityID].Name
		d.Country = r.s.universities[a.UniversityID].Country
		out = append(out, d)
	}
	newestFirst(out, func(d models.ApplicationWithDetails) time.Time { return d.CreatedAt })
	return out
}

func (r *applicationRepo) GetAll(ctx context.Context) ([]models.ApplicationWithDetails, error) {
	return r.details(""), nil
}

func (r *applicationRepo) GetByStudent(ctx context.Context, studentID string) ([]models.ApplicationWithDetails, error) {
	return r.details(studentID), nil
}

func (r *applicationRepo) CountByStatus(ctx context.Context, studentID string) (map[models.ApplicationStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[models.ApplicationStatus]int{}
	for _, a := range r.s.applications {
		if studentID == "" || a.StudentID == studentID {
			counts[a.Status]++
		}
	}
	return counts, nil
}

func (r *applicationRepo) Summary(ctx context.Context, studentID string) ([]models.ApplicationSummary, error) {
	out := []models.ApplicationSummary{}
	for _, d := range r.details(studentID) {
		r.s.mu.Lock()
		email := r.s.students[d.StudentID].Email
		r.s.mu.Unlock()
		out = append(out, models.ApplicationSummary{
			ApplicationID:   d.ID,
			StudentID:       d.StudentID,
			StudentName:     d.StudentName,
			StudentEmail:    email,
			UniversityID:    d.UniversityID,
			UniversityName:  d.UniversityName,
			Country:         d.Country,
			Status:          d.Status,
			AppliedAt:       d.CreatedAt,
			UpdatedAt:       d.UpdatedAt,
			CounselorRemark: d.CounselorRemark,
		})
	}
	return out, nil
}

type historyRepo struct{ s *Store }

func (r *historyRepo) Create(ctx context.Context, entry *models.ApplicationHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("history.Create"); err != nil {
		return err
	}
	if _, ok := r.s.applications[entry.ApplicationID]; !ok {
		return foreignKeyViolation("application_history_application_id_fkey")
	}
	r.s.history = append(r.s.history, *entry)
	return nil
}

// ListByApplication keeps insertion order, which is changed_at order.
func (r *historyRepo) ListByApplication(ctx context.Context, applicationID string) ([]models.ApplicationHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.ApplicationHistory{}
	for _, h := range r.s.history {
		if h.ApplicationID != applicationID {
			continue
		}
		if u, ok := r.s.users[h.ChangedBy]; ok {
			h.ChangedByEmail = u.Email
		}
		out = append(out, h)
	}
	return out, nil
}

type invoiceRepo struct{ s *Store }

func (r *invoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invoices {
		if inv.ApplicationID == invoice.ApplicationID {
			return uniqueViolation("invoices_application_id_key")
		}
	}
	r.s.invoices[invoice.ID] = *invoice
	return nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *invoiceRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r *invoiceRepo) GetByApplication(ctx context.Context, applicationID string) (*models.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invoices {
		if inv.ApplicationID == applicationID {
			return &inv, nil
		}
	}
	return nil, nil
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, id, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("invoices.UpdateStatus"); err != nil {
		return err
	}
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil
	}
	inv.Status = status
	inv.UpdatedAt = time.Now()
	r.s.invoices[id] = inv
	return nil
}

func (s *Store) paidLocked(invoiceID string) float64 {
	var total float64
	for _, p := range s.payments {
		if p.InvoiceID == invoiceID {
			total += p.Amount
		}
	}
	return total
}

func (r *invoiceRepo) details(studentID string) []models.InvoiceWithDetails {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.InvoiceWithDetails{}
	for _, inv := range r.s.invoices {
		app := r.s.applications[inv.ApplicationID]
		if studentID != "" && app.StudentID != studentID {
			continue
		}
		out = append(out, models.InvoiceWithDetails{
			Invoice:        inv,
			StudentID:      app.StudentID,
			StudentName:    r.s.students[app.StudentID].FullName,
			UniversityName: r.s.universities[app.UniversityID].Name,
			PaidAmount:     r.s.paidLocked(inv.ID),
		})
	}
	newestFirst(out, func(d models.InvoiceWithDetails) time.Time { return d.CreatedAt })
	return out
}

func (r *invoiceRepo) GetAll(ctx context.Context) ([]models.InvoiceWithDetails, error) {
	return r.details(""), nil
}

func (r *invoiceRepo) GetByStudent(ctx context.Context, studentID string) ([]models.InvoiceWithDetails, error) {
	return r.details(studentID), nil
}

func (r *invoiceRepo) unpaid(match func(models.Invoice) bool) []models.UnpaidInvoice {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.UnpaidInvoice{}
	for _, inv := range r.s.invoices {
		if inv.Status != models.InvoiceUnpaid || !match(inv) {
			continue
		}
		app := r.s.applications[inv.ApplicationID]
		uni := r.s.universities[app.UniversityID]
		out = append(out, models.UnpaidInvoice{
			InvoiceID:         inv.ID,
			Amount:            inv.Amount,
			DueDate:           inv.DueDate,
			InvoiceDate:       inv.CreatedAt,
			ApplicationID:     app.ID,
			StudentID:         app.StudentID,
			StudentName:       r.s.students[app.StudentID].FullName,
			UniversityName:    uni.Name,
			UniversityCountry: uni.Country,
		})
	}
	newestFirst(out, func(u models.UnpaidInvoice) time.Time { return u.InvoiceDate })
	return out
}

func (r *invoiceRepo) ListUnpaid(ctx context.Context) ([]models.UnpaidInvoice, error) {
	return r.unpaid(func(models.Invoice) bool { return true }), nil
}

func (r *invoiceRepo) ListDueBefore(ctx context.Context, day time.Time) ([]models.UnpaidInvoice, error) {
	return r.unpaid(func(inv models.Invoice) bool {
		return inv.DueDate != nil && !inv.DueDate.After(day)
	}), nil
}

func (r *invoiceRepo) PendingTotals(ctx context.Context) (int, float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int
	var sum float64
	for _, inv := range r.s.invoices {
		if inv.Status == models.InvoiceUnpaid {
			n++
			sum += inv.Amount
		}
	}
	return n, sum, nil
}

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("payments.Create"); err != nil {
		return err
	}
	if _, ok := r.s.invoices[payment.InvoiceID]; !ok {
		return foreignKeyViolation("payments_invoice_id_fkey")
	}
	r.s.payments = append(r.s.payments, *payment)
	return nil
}

func (r *paymentRepo) SumByInvoice(ctx context.Context, invoiceID string) (float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.paidLocked(invoiceID), nil
}

func (r *paymentRepo) details(studentID string) []models.PaymentWithDetails {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.PaymentWithDetails{}
	for _, p := range r.s.payments {
		app := r.s.applications[r.s.invoices[p.InvoiceID].ApplicationID]
		if studentID != "" && app.StudentID != studentID {
			continue
		}
		out = append(out, models.PaymentWithDetails{
			Payment:        p,
			StudentName:    r.s.students[app.StudentID].FullName,
			UniversityName: r.s.universities[app.UniversityID].Name,
		})
	}
	newestFirst(out, func(p models.PaymentWithDetails) time.Time { return p.PaymentDate })
	return out
}

func (r *paymentRepo) GetAll(ctx context.Context) ([]models.PaymentWithDetails, error) {
	return r.details(""), nil
}

func (r *paymentRepo) GetByStudent(ctx context.Context, studentID string) ([]models.PaymentWithDetails, error) {
	return r.details(studentID), nil
}

func (r *paymentRepo) Revenue(ctx context.Context) (float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total float64
	for _, p := range r.s.payments {
		if r.s.invoices[p.InvoiceID].Status == models.InvoicePaid {
			total += p.Amount
		}
	}
	return total, nil
}

func (r *paymentRepo) MonthlyRevenue(ctx context.Context, since time.Time) ([]models.MonthlyRevenue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byMonth := map[string]float64{}
	for _, p := range r.s.payments {
		if r.s.invoices[p.InvoiceID].Status != models.InvoicePaid || p.PaymentDate.Before(since) {
			continue
		}
		byMonth[p.PaymentDate.Format("2006-01")] += p.Amount
	}
	out := make([]models.MonthlyRevenue, 0, len(byMonth))
	for month, revenue := range byMonth {
		out = append(out, models.MonthlyRevenue{Month: month, Revenue: revenue})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

type reminderRepo struct{ s *Store }

func (r *reminderRepo) Create(ctx context.Context, reminder *models.Reminder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.students[reminder.StudentID]; !ok {
		return foreignKeyViolation("reminders_student_id_fkey")
	}
	r.s.reminders[reminder.ID] = *reminder
	return nil
}

func (r *reminderRepo) GetAll(ctx context.Context) ([]models.ReminderWithStudent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.ReminderWithStudent{}
	for _, rm := range r.s.reminders {
		out = append(out, models.ReminderWithStudent{Reminder: rm, StudentName: r.s.students[rm.StudentID].FullName})
	}
	newestFirst(out, func(rm models.ReminderWithStudent) time.Time { return rm.ReminderDate })
	return out, nil
}

func (r *reminderRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reminders[id]; !ok {
		return false, nil
	}
	delete(r.s.reminders, id)
	return true, nil
}

func (r *reminderRepo) DeleteByInvoice(ctx context.Context, invoiceID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	mention := strings.ToLower("invoice #" + invoiceID)
	var n int64
	for id, rm := range r.s.reminders {
		if rm.InvoiceID == invoiceID || strings.Contains(strings.ToLower(rm.Note), mention) {
			delete(r.s.reminders, id)
			n++
		}
	}
	return n, nil
}

func (r *reminderRepo) ExistsForInvoiceOn(ctx context.Context, invoiceID string, day time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rm := range r.s.reminders {
		if rm.InvoiceID == invoiceID && sameDay(rm.ReminderDate, day) {
			return true, nil
		}
	}
	return false, nil
}

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("notifications.Create"); err != nil {
		return err
	}
	if _, ok := r.s.students[n.StudentID]; !ok {
		return foreignKeyViolation("notifications_student_id_fkey")
	}
	r.s.notifications[n.ID] = *n
	return nil
}

func (r *notificationRepo) GetAll(ctx context.Context) ([]models.NotificationWithStudent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.NotificationWithStudent{}
	for _, n := range r.s.notifications {
		out = append(out, models.NotificationWithStudent{Notification: n, StudentName: r.s.students[n.StudentID].FullName})
	}
	newestFirst(out, func(n models.NotificationWithStudent) time.Time { return n.CreatedAt })
	return out, nil
}

func (r *notificationRepo) GetByStudent(ctx context.Context, studentID string) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Notification{}
	for _, n := range r.s.notifications {
		if n.StudentID == studentID {
			out = append(out, n)
		}
	}
	newestFirst(out, func(n models.Notification) time.Time { return n.CreatedAt })
	return out, nil
}

func (r *notificationRepo) markRead(match func(models.Notification) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for id, n := range r.s.notifications {
		if match(n) {
			n.IsRead = true
			r.s.notifications[id] = n
			count++
		}
	}
	return count
}

func (r *notificationRepo) MarkRead(ctx context.Context, id string) (bool, error) {
	return r.markRead(func(n models.Notification) bool { return n.ID == id }) > 0, nil
}

func (r *notificationRepo) MarkReadForStudent(ctx context.Context, id, studentID string) (bool, error) {
	return r.markRead(func(n models.Notification) bool { return n.ID == id && n.StudentID == studentID }) > 0, nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, studentID string) (int64, error) {
	return r.markRead(func(n models.Notification) bool { return n.StudentID == studentID && !n.IsRead }), nil
}

func (r *notificationRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.notifications[id]; !ok {
		return false, nil
	}
	delete(r.s.notifications, id)
	return true, nil
}

func (r *notificationRepo) UnreadCounts(ctx context.Context) ([]models.UnreadCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]int{}
	for _, n := range r.s.notifications {
		if !n.IsRead {
			counts[n.StudentID]++
		}
	}
	out := make([]models.UnreadCount, 0, len(counts))
	for studentID, c := range counts {
		out = append(out, models.UnreadCount{StudentID: studentID, StudentName: r.s.students[studentID].FullName, UnreadCount: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UnreadCount != out[j].UnreadCount {
			return out[i].UnreadCount > out[j].UnreadCount
		}
		return out[i].StudentName < out[j].StudentName
	})
	return out, nil
}
