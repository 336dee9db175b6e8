package models

type DashboardStats struct {
	TotalStudents        int              `json:"total_students"`
	TotalApplications    int              `json:"total_applications"`
	ApplicationsByStatus map[string]int   `json:"applications_by_status"`
	TotalRevenue         float64          `json:"total_revenue"`
	PendingInvoices      int              `json:"pending_invoices"`
	PendingAmount        float64          `json:"pending_amount"`
	ActiveUniversities   int              `json:"active_universities"`
	MonthlyRevenue       []MonthlyRevenue `json:"monthly_revenue"`
}

type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

type StudentDashboard struct {
	Profile        *StudentDetail    `json:"profile"`
	Applications   ApplicationCounts `json:"applications"`
	IELTS          Readiness         `json:"ielts"`
	UpcomingMocks  []MockTest        `json:"upcoming_mocks"`
	TotalMockTests int               `json:"total_mock_tests"`
}

type ApplicationCounts struct {
	Total    int `json:"total"`
	Applied  int `json:"applied"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}
