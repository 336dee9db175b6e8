// Package repotest provides in-memory implementations of the repository
// interfaces for service and handler tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/lib/pq"
)

type txKey struct{}

type enrollment struct {
	ID        string
	StudentID string
	CourseID  string
}

// Store holds every table in memory. Repositories created from the same
// Store share its data.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users         map[string]models.User
	students      map[string]models.Student
	guardians     map[string]models.Guardian
	universities  map[string]models.University
	applications  map[string]models.Application
	history       []models.ApplicationHistory
	invoices      map[string]models.Invoice
	payments      []models.Payment
	notifications map[string]models.Notification
	reminders     map[string]models.Reminder
	documents     map[string]models.Document
	assignments   map[string]models.CounselorAssignment
	content       map[string]string
	courses       map[string]models.IELTSCourse
	enrollments   []enrollment
	mocks         map[string]models.MockTest
	results       []models.IELTSResult
	materials     map[string]models.Material

	failures map[string]error
}

func NewStore() *Store {
	return &Store{
		users:         map[string]models.User{},
		students:      map[string]models.Student{},
		guardians:     map[string]models.Guardian{},
		universities:  map[string]models.University{},
		applications:  map[string]models.Application{},
		invoices:      map[string]models.Invoice{},
		notifications: map[string]models.Notification{},
		reminders:     map[string]models.Reminder{},
		documents:     map[string]models.Document{},
		assignments:   map[string]models.CounselorAssignment{},
		content:       map[string]string{},
		courses:       map[string]models.IELTSCourse{},
		mocks:         map[string]models.MockTest{},
		materials:     map[string]models.Material{},
		failures:      map[string]error{},
	}
}

// FailOn makes the named operation (e.g. "history.Create") return err until
// it is cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// fail must be called with mu held.
func (s *Store) fail(op string) error {
	return s.failures[op]
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) snapshot() *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Store{
		users:         copyMap(s.users),
		students:      copyMap(s.students),
		guardians:     copyMap(s.guardians),
		universities:  copyMap(s.universities),
		applications:  copyMap(s.applications),
		history:       append([]models.ApplicationHistory(nil), s.history...),
		invoices:      copyMap(s.invoices),
		payments:      append([]models.Payment(nil), s.payments...),
		notifications: copyMap(s.notifications),
		reminders:     copyMap(s.reminders),
		documents:     copyMap(s.documents),
		assignments:   copyMap(s.assignments),
		content:       copyMap(s.content),
		courses:       copyMap(s.courses),
		enrollments:   append([]enrollment(nil), s.enrollments...),
		mocks:         copyMap(s.mocks),
		results:       append([]models.IELTSResult(nil), s.results...),
		materials:     copyMap(s.materials),
	}
}

func (s *Store) restore(snap *Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.students = snap.students
	s.guardians = snap.guardians
	s.universities = snap.universities
	s.applications = snap.applications
	s.history = snap.history
	s.invoices = snap.invoices
	s.payments = snap.payments
	s.notifications = snap.notifications
	s.reminders = snap.reminders
	s.documents = snap.documents
	s.assignments = snap.assignments
	s.content = snap.content
	s.courses = snap.courses
	s.enrollments = snap.enrollments
	s.mocks = snap.mocks
	s.results = snap.results
	s.materials = snap.materials
}

type transactor struct {
	store *Store
}

// Transactor serializes transactions and rolls the whole store back to its
// state at begin when fn fails or panics.
func (s *Store) Transactor() repository.Transactor {
	return &transactor{store: s}
}

func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	snap := t.store.snapshot()
	defer func() {
		if p := recover(); p != nil {
			t.store.restore(snap)
			panic(p)
		}
		if err != nil {
			t.store.restore(snap)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

// Repositories bundles one implementation of every repository interface.
type Repositories struct {
	Store         *Store
	Tx            repository.Transactor
	Users         repository.UserRepository
	Students      repository.StudentRepository
	Universities  repository.UniversityRepository
	Applications  repository.ApplicationRepository
	History       repository.HistoryRepository
	Invoices      repository.InvoiceRepository
	Payments      repository.PaymentRepository
	Notifications repository.NotificationRepository
	Reminders     repository.ReminderRepository
	Documents     repository.DocumentRepository
	Counselors    repository.CounselorRepository
	Content       repository.ContentRepository
	IELTS         repository.IELTSRepository
	Materials     repository.MaterialRepository
}

func New() *Repositories {
	s := NewStore()
	return &Repositories{
		Store:         s,
		Tx:            s.Transactor(),
		Users:         &userRepo{s},
		Students:      &studentRepo{s},
		Universities:  &universityRepo{s},
		Applications:  &applicationRepo{s},
		History:       &historyRepo{s},
		Invoices:      &invoiceRepo{s},
		Payments:      &paymentRepo{s},
		Notifications: &notificationRepo{s},
		Reminders:     &reminderRepo{s},
		Documents:     &documentRepo{s},
		Counselors:    &counselorRepo{s},
		Content:       &contentRepo{s},
		IELTS:         &ieltsRepo{s},
		Materials:     &materialRepo{s},
	}
}

func uniqueViolation(constraint string) error {
	return &pq.Error{Code: "23505", Constraint: constraint, Message: "duplicate key value violates unique constraint"}
}

func foreignKeyViolation(constraint string) error {
	return &pq.Error{Code: "23503", Constraint: constraint, Message: "insert or update violates foreign key constraint"}
}

func newestFirst[T any](items []T, at func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool { return at(items[i]).After(at(items[j])) })
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
