package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

func NewCreateCheckoutRequestFromContext(ctx echo.Context) (*CreateCheckoutRequest, error) {
	var body CreateCheckoutRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Provider = strings.ToLower(strings.TrimSpace(body.Provider))
	body.PaymentMethod = strings.ToUpper(strings.TrimSpace(body.PaymentMethod))
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	body.Name = strings.TrimSpace(body.Name)
	body.Phone = strings.TrimSpace(body.Phone)

	return &body, nil
}

// Validate checks the shape only. Whether email and name are needed
// depends on the caller being signed in, which the service decides.
func (r *CreateCheckoutRequest) Validate() error {
	if r.GetCourseId() == 0 {
		return errors.New("course_id is required")
	}
	if len(r.GetPaymentMethod()) > 32 {
		return errors.New("payment_method is too long")
	}
	if len(r.GetPhone()) > 32 {
		return errors.New("phone is too long")
	}
	return nil
}

func NewGetPaymentStatusRequestFromContext(ctx echo.Context) (*GetPaymentStatusRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &GetPaymentStatusRequest{Id: id}, nil
}

func NewPaymentStatusLookupRequestFromContext(ctx echo.Context) (*GetPaymentStatusRequest, error) {
	req := &GetPaymentStatusRequest{
		Reference:       strings.TrimSpace(ctx.QueryParam("reference")),
		MerchantOrderId: strings.TrimSpace(ctx.QueryParam("merchantOrderId")),
	}
	if req.MerchantOrderId == "" {
		req.MerchantOrderId = strings.TrimSpace(ctx.QueryParam("merchant_order_id"))
	}
	return req, nil
}

func (r *GetPaymentStatusRequest) Validate() error {
	if r.GetId() == 0 && strings.TrimSpace(r.GetReference()) == "" && strings.TrimSpace(r.GetMerchantOrderId()) == "" {
		return errors.New("id, reference or merchant order id is required")
	}
	return nil
}

func NewCompleteRegistrationRequestFromContext(ctx echo.Context) (*CompleteRegistrationRequest, error) {
	var body CompleteRegistrationRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Reference = strings.TrimSpace(body.Reference)
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	body.Name = strings.TrimSpace(body.Name)
	body.Phone = strings.TrimSpace(body.Phone)

	return &body, nil
}

func (r *CompleteRegistrationRequest) Validate() error {
	if r.GetReference() == "" {
		return errors.New("reference is required")
	}
	if r.GetEmail() == "" {
		return errors.New("email is required")
	}
	if len(r.GetPassword()) < 8 {
		return errors.New("password must have at least 8 characters")
	}
	return nil
}

func NewCheckEnrollmentRequestFromContext(ctx echo.Context) (*CheckEnrollmentRequest, error) {
	accountID, err := strconv.ParseUint(strings.TrimSpace(ctx.QueryParam("account_id")), 10, 64)
	if err != nil {
		return nil, errors.New("account_id must be a positive integer")
	}
	courseID, err := strconv.ParseUint(strings.TrimSpace(ctx.QueryParam("course_id")), 10, 64)
	if err != nil {
		return nil, errors.New("course_id must be a positive integer")
	}
	return &CheckEnrollmentRequest{AccountId: accountID, CourseId: courseID}, nil
}

func (r *CheckEnrollmentRequest) Validate() error {
	if r.GetAccountId() == 0 {
		return errors.New("account_id is required")
	}
	if r.GetCourseId() == 0 {
		return errors.New("course_id is required")
	}
	return nil
}
