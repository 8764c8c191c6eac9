package provider

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	contextKeyCourseID  = "courseId"
	contextKeyAccountID = "accountId"
	contextKeyEmail     = "email"
	contextKeyFlow      = "flow"

	flowPayFirst = "payfirst"
)

// CallbackContext is the checkout context echoed back by the gateway in the
// callback. A registered checkout carries the account id, a pay-first
// checkout carries the customer email.
type CallbackContext struct {
	CourseID  uint64
	AccountID uint64
	Email     string
	PayFirst  bool
}

func (c CallbackContext) Encode() string {
	values := url.Values{}
	values.Set(contextKeyCourseID, strconv.FormatUint(c.CourseID, 10))
	if c.PayFirst {
		values.Set(contextKeyEmail, strings.ToLower(strings.TrimSpace(c.Email)))
		values.Set(contextKeyFlow, flowPayFirst)
	} else {
		values.Set(contextKeyAccountID, strconv.FormatUint(c.AccountID, 10))
	}
	return values.Encode()
}

func ParseCallbackContext(raw string) (*CallbackContext, error) {
	values, err := url.ParseQuery(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: additionalParam: %v", ErrInvalidContext, err)
	}

	courseID, err := strconv.ParseUint(strings.TrimSpace(values.Get(contextKeyCourseID)), 10, 64)
	if err != nil || courseID == 0 {
		return nil, fmt.Errorf("%w: additionalParam has no valid courseId", ErrInvalidContext)
	}

	out := &CallbackContext{CourseID: courseID}
	if strings.EqualFold(strings.TrimSpace(values.Get(contextKeyFlow)), flowPayFirst) {
		email := strings.ToLower(strings.TrimSpace(values.Get(contextKeyEmail)))
		if email == "" {
			return nil, fmt.Errorf("%w: pay-first additionalParam has no email", ErrInvalidContext)
		}
		out.PayFirst = true
		out.Email = email
		return out, nil
	}

	accountID, err := strconv.ParseUint(strings.TrimSpace(values.Get(contextKeyAccountID)), 10, 64)
	if err != nil || accountID == 0 {
		return nil, fmt.Errorf("%w: additionalParam has no valid accountId", ErrInvalidContext)
	}
	out.AccountID = accountID
	return out, nil
}
