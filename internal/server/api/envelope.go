// Package api is the transport-independent operation surface. Each named
// operation decodes its arguments, runs its guard and validation, calls the
// services and folds the outcome into an Envelope. Transports only resolve
// the caller's identity and move envelopes over the wire.
package api

import (
	"errors"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// Kind is a stable, machine-readable failure class carried next to the
// human-readable message.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindDuplicatePhone    Kind = "duplicate_phone"
	KindDuplicateEmail    Kind = "duplicate_email"
	KindInvalidCode       Kind = "invalid_code"
	KindCodeExpired       Kind = "code_expired"
	KindAlreadyVerified   Kind = "already_verified"
	KindIncorrectPassword Kind = "incorrect_password"
	KindIneligible        Kind = "ineligible_account"
	KindUnauthenticated   Kind = "unauthenticated"
	KindForbidden         Kind = "forbidden"
	KindValidation        Kind = "validation_error"
	KindDeliveryFailure   Kind = "delivery_failure"
	KindInternal          Kind = "internal"
)

// Envelope is the result of every operation.
type Envelope struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Data     any              `json:"data"`
	Kind     Kind             `json:"kind,omitempty"`
	PageInfo *models.PageInfo `json:"pageInfo,omitempty"`
}

// OK builds a successful envelope.
func OK(message string, data any) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

// Fail builds a failed envelope for err. Internal failures and delivery
// failures report only their class, never the underlying cause.
func Fail(err error) Envelope {
	kind := KindOf(err)

	msg := err.Error()
	switch kind {
	case KindInternal:
		msg = common.ErrorInternal.Error()
	case KindDeliveryFailure:
		msg = common.ErrDeliveryFailure.Error()
	}

	return Envelope{Success: false, Message: msg, Kind: kind}
}

var kinds = []struct {
	target error
	kind   Kind
}{
	{common.ErrorValidation, KindValidation},
	{common.ErrorUnauthenticated, KindUnauthenticated},
	{common.ErrorForbidden, KindForbidden},
	{common.ErrorNotFound, KindNotFound},
	{common.ErrAccountMissing, KindNotFound},
	{common.ErrDuplicatePhone, KindDuplicatePhone},
	{common.ErrDuplicateEmail, KindDuplicateEmail},
	{common.ErrInvalidCode, KindInvalidCode},
	{common.ErrCodeExpired, KindCodeExpired},
	{common.ErrAlreadyVerified, KindAlreadyVerified},
	{common.ErrIncorrectPassword, KindIncorrectPassword},
	{common.ErrIneligibleAccount, KindIneligible},
	{common.ErrDeliveryFailure, KindDeliveryFailure},
}

// KindOf classifies err. Anything unrecognised is internal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return KindInternal
}
