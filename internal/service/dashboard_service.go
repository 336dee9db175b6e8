package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/rs/zerolog"
)

const revenueMonths = 6

type DashboardService interface {
	Stats(ctx context.Context, now time.Time) (*models.DashboardStats, error)
}

type dashboardService struct {
	studentRepo    repository.StudentRepository
	appRepo        repository.ApplicationRepository
	invoiceRepo    repository.InvoiceRepository
	paymentRepo    repository.PaymentRepository
	universityRepo repository.UniversityRepository
	logger         zerolog.Logger
}

func NewDashboardService(
	studentRepo repository.StudentRepository,
	appRepo repository.ApplicationRepository,
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	universityRepo repository.UniversityRepository,
	logger zerolog.Logger,
) DashboardService {
	return &dashboardService{
		studentRepo:    studentRepo,
		appRepo:        appRepo,
		invoiceRepo:    invoiceRepo,
		paymentRepo:    paymentRepo,
		universityRepo: universityRepo,
		logger:         logger,
	}
}

func (s *dashboardService) Stats(ctx context.Context, now time.Time) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{ApplicationsByStatus: map[string]int{}}

	var err error
	if stats.TotalStudents, err = s.studentRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}

	byStatus, err := s.appRepo.CountByStatus(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}
	for _, status := range []models.ApplicationStatus{models.StatusApplied, models.StatusApproved, models.StatusRejected} {
		stats.ApplicationsByStatus[string(status)] = byStatus[status]
		stats.TotalApplications += byStatus[status]
	}

	if stats.TotalRevenue, err = s.paymentRepo.Revenue(ctx); err != nil {
		return nil, fmt.Errorf("failed to get revenue: %w", err)
	}

	if stats.PendingInvoices, stats.PendingAmount, err = s.invoiceRepo.PendingTotals(ctx); err != nil {
		return nil, fmt.Errorf("failed to get pending invoices: %w", err)
	}

	if stats.ActiveUniversities, err = s.universityRepo.CountActive(ctx); err != nil {
		return nil, fmt.Errorf("failed to count universities: %w", err)
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(revenueMonths - 1), 0)
	monthly, err := s.paymentRepo.MonthlyRevenue(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly revenue: %w", err)
	}
	stats.MonthlyRevenue = fillMonths(start, revenueMonths, monthly)

	return stats, nil
}

// fillMonths returns one entry per month starting at start, zero when the
// month had no revenue.
func fillMonths(start time.Time, months int, rows []models.MonthlyRevenue) []models.MonthlyRevenue {
	byMonth := make(map[string]float64, len(rows))
	for _, r := range rows {
		byMonth[r.Month] = r.Revenue
	}

	out := make([]models.MonthlyRevenue, 0, months)
	for i := 0; i < months; i++ {
		month := start.AddDate(0, i, 0).Format("2006-01")
		out = append(out, models.MonthlyRevenue{Month: month, Revenue: byMonth[month]})
	}
	return out
}
