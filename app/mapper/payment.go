package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-course-payments/app/service"
	"github.com/vibast-solutions/ms-go-course-payments/app/types"
)

func CheckoutToResponse(item *service.CheckoutResult) *types.CheckoutResponse {
	if item == nil {
		return nil
	}

	return &types.CheckoutResponse{
		Kind:            item.Kind,
		Id:              item.RecordID,
		Provider:        item.Provider,
		PaymentMethod:   item.PaymentMethod,
		Reference:       item.Reference,
		MerchantOrderId: item.MerchantOrderID,
		AmountMinor:     item.AmountMinor,
		Currency:        item.Currency,
		PaymentUrl:      derefString(item.PaymentURL),
		VaNumber:        derefString(item.VANumber),
		QrString:        derefString(item.QRString),
		ExpiresAt:       formatTime(item.ExpiresAt),
	}
}

func StatusViewToResponse(item *service.PaymentStatusView) *types.PaymentStatusResponse {
	if item == nil {
		return nil
	}

	return &types.PaymentStatusResponse{
		Id:                item.ID,
		Kind:              item.Kind,
		Provider:          item.Provider,
		Reference:         item.Reference,
		MerchantOrderId:   item.MerchantOrderID,
		CourseId:          item.CourseID,
		AccountId:         item.AccountID,
		AmountMinor:       item.AmountMinor,
		Currency:          item.Currency,
		Status:            string(item.Status),
		PaymentUrl:        derefString(item.PaymentURL),
		VaNumber:          derefString(item.VANumber),
		QrString:          derefString(item.QRString),
		ExpiresAt:         formatTime(item.ExpiresAt),
		Enrolled:          item.Enrolled,
		CanRetry:          item.CanRetry,
		CanAccess:         item.CanAccess,
		NeedsPayment:      item.NeedsPayment,
		NeedsRegistration: item.NeedsRegistration,
		HeldForReview:     item.HeldForReview,
		Stale:             item.Stale,
		DegradedReason:    item.DegradedReason,
	}
}

func RegistrationToResponse(item *service.RegistrationResult) *types.CompleteRegistrationResponse {
	if item == nil {
		return nil
	}

	resp := &types.CompleteRegistrationResponse{
		AccountId:      item.AccountID,
		AccountCreated: item.AccountCreated,
		CourseId:       item.CourseID,
		PaymentId:      item.PaymentID,
		Enrolled:       item.Enrolled,
		AccessToken:    item.AccessToken,
	}
	if !item.ExpiresAt.IsZero() {
		resp.ExpiresAt = item.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
