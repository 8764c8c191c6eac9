package types

// Messages are plain structs shared by the HTTP API and the JSON gRPC
// codec. Getters are nil-safe so handlers can chain them.

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type HealthRequest struct{}

type HealthResponse struct {
	Status string `json:"status"`
}

type WebhookAckResponse struct {
	Status  string `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

type CreateCheckoutRequest struct {
	CourseId      uint64 `json:"course_id"`
	Provider      string `json:"provider,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

func (r *CreateCheckoutRequest) GetCourseId() uint64 {
	if r == nil {
		return 0
	}
	return r.CourseId
}

func (r *CreateCheckoutRequest) GetProvider() string {
	if r == nil {
		return ""
	}
	return r.Provider
}

func (r *CreateCheckoutRequest) GetPaymentMethod() string {
	if r == nil {
		return ""
	}
	return r.PaymentMethod
}

func (r *CreateCheckoutRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

func (r *CreateCheckoutRequest) GetName() string {
	if r == nil {
		return ""
	}
	return r.Name
}

func (r *CreateCheckoutRequest) GetPhone() string {
	if r == nil {
		return ""
	}
	return r.Phone
}

type CheckoutResponse struct {
	Kind            string `json:"kind"`
	Id              uint64 `json:"id"`
	Provider        string `json:"provider"`
	PaymentMethod   string `json:"payment_method,omitempty"`
	Reference       string `json:"reference"`
	MerchantOrderId string `json:"merchant_order_id"`
	AmountMinor     int64  `json:"amount_minor"`
	Currency        string `json:"currency"`
	PaymentUrl      string `json:"payment_url,omitempty"`
	VaNumber        string `json:"va_number,omitempty"`
	QrString        string `json:"qr_string,omitempty"`
	ExpiresAt       string `json:"expires_at,omitempty"`
}

type GetPaymentStatusRequest struct {
	Id              uint64 `json:"id,omitempty"`
	Reference       string `json:"reference,omitempty"`
	MerchantOrderId string `json:"merchant_order_id,omitempty"`
}

func (r *GetPaymentStatusRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

func (r *GetPaymentStatusRequest) GetReference() string {
	if r == nil {
		return ""
	}
	return r.Reference
}

func (r *GetPaymentStatusRequest) GetMerchantOrderId() string {
	if r == nil {
		return ""
	}
	return r.MerchantOrderId
}

type PaymentStatusResponse struct {
	Id                uint64 `json:"id"`
	Kind              string `json:"kind"`
	Provider          string `json:"provider"`
	Reference         string `json:"reference"`
	MerchantOrderId   string `json:"merchant_order_id"`
	CourseId          uint64 `json:"course_id"`
	AccountId         uint64 `json:"account_id,omitempty"`
	AmountMinor       int64  `json:"amount_minor"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	PaymentUrl        string `json:"payment_url,omitempty"`
	VaNumber          string `json:"va_number,omitempty"`
	QrString          string `json:"qr_string,omitempty"`
	ExpiresAt         string `json:"expires_at,omitempty"`
	Enrolled          bool   `json:"enrolled"`
	CanRetry          bool   `json:"can_retry"`
	CanAccess         bool   `json:"can_access"`
	NeedsPayment      bool   `json:"needs_payment"`
	NeedsRegistration bool   `json:"needs_registration"`
	HeldForReview     bool   `json:"held_for_review"`
	Stale             bool   `json:"stale"`
	DegradedReason    string `json:"degraded_reason,omitempty"`
}

type CompleteRegistrationRequest struct {
	Reference string `json:"reference"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

func (r *CompleteRegistrationRequest) GetReference() string {
	if r == nil {
		return ""
	}
	return r.Reference
}

func (r *CompleteRegistrationRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

func (r *CompleteRegistrationRequest) GetPassword() string {
	if r == nil {
		return ""
	}
	return r.Password
}

func (r *CompleteRegistrationRequest) GetName() string {
	if r == nil {
		return ""
	}
	return r.Name
}

func (r *CompleteRegistrationRequest) GetPhone() string {
	if r == nil {
		return ""
	}
	return r.Phone
}

type CompleteRegistrationResponse struct {
	AccountId      uint64 `json:"account_id"`
	AccountCreated bool   `json:"account_created"`
	CourseId       uint64 `json:"course_id"`
	PaymentId      uint64 `json:"payment_id"`
	Enrolled       bool   `json:"enrolled"`
	AccessToken    string `json:"access_token,omitempty"`
	ExpiresAt      string `json:"expires_at,omitempty"`
}

type CheckEnrollmentRequest struct {
	AccountId uint64 `json:"account_id"`
	CourseId  uint64 `json:"course_id"`
}

func (r *CheckEnrollmentRequest) GetAccountId() uint64 {
	if r == nil {
		return 0
	}
	return r.AccountId
}

func (r *CheckEnrollmentRequest) GetCourseId() uint64 {
	if r == nil {
		return 0
	}
	return r.CourseId
}

type CheckEnrollmentResponse struct {
	AccountId uint64 `json:"account_id"`
	CourseId  uint64 `json:"course_id"`
	Enrolled  bool   `json:"enrolled"`
}
