package models

// Data Transfer Objects

type RegisterRequest struct {
	Email         string `json:"email" validate:"required,email,max=255"`
	Password      string `json:"password" validate:"required,min=6,max=72"`
	FullName      string `json:"full_name" validate:"required,min=2,max=255"`
	Phone         string `json:"phone" validate:"omitempty,max=50"`
	DOB           string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	PassportNo    string `json:"passport_no" validate:"omitempty,max=50"`
	Nationality   string `json:"nationality" validate:"omitempty,max=100"`
	GuardianName  string `json:"guardian_name" validate:"omitempty,max=255"`
	GuardianPhone string `json:"guardian_phone" validate:"omitempty,max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
	User  *User  `json:"user"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,numeric"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

type MeResponse struct {
	User    *User    `json:"user"`
	Student *Student `json:"student,omitempty"`
}

type CreateStudentRequest struct {
	Email         string `json:"email" validate:"required,email,max=255"`
	Password      string `json:"password" validate:"required,min=6,max=72"`
	FullName      string `json:"full_name" validate:"required,min=2,max=255"`
	Phone         string `json:"phone" validate:"omitempty,max=50"`
	PassportNo    string `json:"passport_no" validate:"omitempty,max=50"`
	Nationality   string `json:"nationality" validate:"omitempty,max=100"`
	GuardianName  string `json:"guardian_name" validate:"omitempty,max=255"`
	GuardianPhone string `json:"guardian_phone" validate:"omitempty,max=50"`
}

type UpdateStudentRequest struct {
	FullName      *string `json:"full_name" validate:"omitempty,min=2,max=255"`
	Phone         *string `json:"phone" validate:"omitempty,max=50"`
	PassportNo    *string `json:"passport_no" validate:"omitempty,max=50"`
	Nationality   *string `json:"nationality" validate:"omitempty,max=100"`
	DOB           *string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Address       *string `json:"address" validate:"omitempty,max=1000"`
	GuardianName  *string `json:"guardian_name" validate:"omitempty,max=255"`
	GuardianPhone *string `json:"guardian_phone" validate:"omitempty,max=50"`
}

type StudentProfileRequest struct {
	FullName    string `json:"full_name" validate:"required,min=2,max=255"`
	Phone       string `json:"phone" validate:"omitempty,max=50"`
	PassportNo  string `json:"passport_no" validate:"omitempty,max=50"`
	Nationality string `json:"nationality" validate:"omitempty,max=100"`
	DOB         string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Address     string `json:"address" validate:"omitempty,max=1000"`
}

type GuardianRequest struct {
	GuardianName string `json:"guardian_name" validate:"required,max=255"`
	Relationship string `json:"relationship" validate:"omitempty,max=100"`
	Phone        string `json:"phone" validate:"omitempty,max=50"`
	Email        string `json:"email" validate:"omitempty,email,max=255"`
	Address      string `json:"address" validate:"omitempty,max=1000"`
}

type UniversityRequest struct {
	Name             string   `json:"name" validate:"required,max=255"`
	Country          string   `json:"country" validate:"required,max=100"`
	Requirements     string   `json:"requirements" validate:"omitempty"`
	IELTSRequirement *float64 `json:"ielts_requirement" validate:"omitempty,gte=0,lte=9"`
	IsActive         *bool    `json:"is_active"`
}

type ApplyRequest struct {
	UniversityID string `json:"university_id" validate:"required"`
}

type AdminCreateApplicationRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	UniversityID string `json:"university_id" validate:"required"`
}

type UpdateApplicationRequest struct {
	UniversityID *string `json:"university_id"`
	Status       *string `json:"status"`
	Remark       *string `json:"counselor_remark"`
}

type SetStatusRequest struct {
	ApplicationID string `json:"application_id" validate:"required"`
	Status        string `json:"status" validate:"required"`
	Remark        string `json:"counselor_remark"`
}

type CreateInvoiceRequest struct {
	ApplicationID string  `json:"application_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	DueDate       string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

type RecordPaymentRequest struct {
	InvoiceID   string  `json:"invoice_id" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Method      string  `json:"method" validate:"required,max=50"`
	PaymentDate string  `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	Notes       string  `json:"notes" validate:"omitempty,max=1000"`
}

type CreateNotificationRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Message   string `json:"message" validate:"required,max=2000"`
}

type CreateReminderRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	InvoiceID    string `json:"invoice_id"`
	Note         string `json:"note" validate:"required,max=2000"`
	ReminderDate string `json:"reminder_date" validate:"omitempty,datetime=2006-01-02"`
}

type PushReminderRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Note      string `json:"note" validate:"required,max=2000"`
}

type AssignCounselorRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	CounselorID string `json:"counselor_id" validate:"required"`
}

type UpdateAssignmentRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type CourseRequest struct {
	BatchName   string   `json:"batch_name" validate:"required,max=255"`
	Instructor  string   `json:"instructor" validate:"omitempty,max=255"`
	StartDate   string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Description string   `json:"description"`
	Duration    string   `json:"duration" validate:"omitempty,max=100"`
	Schedule    string   `json:"schedule" validate:"omitempty,max=255"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Status      string   `json:"status" validate:"omitempty,oneof=Active Inactive"`
}

type MockTestRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	TestName string `json:"test_name" validate:"required,max=255"`
	TestDate string `json:"test_date" validate:"required,datetime=2006-01-02"`
}

type ResultRequest struct {
	MockTestID string  `json:"mock_test_id"`
	StudentID  string  `json:"student_id" validate:"required"`
	Listening  float64 `json:"listening" validate:"gte=0,lte=9"`
	Reading    float64 `json:"reading" validate:"gte=0,lte=9"`
	Writing    float64 `json:"writing" validate:"gte=0,lte=9"`
	Speaking   float64 `json:"speaking" validate:"gte=0,lte=9"`
	Overall    float64 `json:"overall" validate:"gte=0,lte=9"`
}

type MaterialRequest struct {
	Title        string `json:"title" validate:"required,max=255"`
	Description  string `json:"description"`
	MaterialType string `json:"material_type" validate:"required,max=50"`
	FileURL      string `json:"file_url"`
	CourseID     string `json:"course_id"`
	IsFree       bool   `json:"is_free"`
}

type UploadDocumentRequest struct {
	StudentID    string
	DocumentType string
	DocumentName string
	FileName     string
	ContentType  string
	Size         int64
}
