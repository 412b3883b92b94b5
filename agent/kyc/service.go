// Package kyc verifies customer identity: PAN lookup, phone OTP and full
// KYC detail matching against the customer book.
package kyc

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	panPattern   = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// testOTP stands in for an SMS gateway. Every OTP challenge accepts it.
const testOTP = "123456"

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrOTPMismatch      = errors.New("otp does not match")
)

// ValidationError marks input the customer can correct conversationally, as
// opposed to infrastructure faults.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Customer is one record of the customer book.
type Customer struct {
	CustomerID       string  `json:"customer_id"`
	Name             string  `json:"name"`
	DOB              string  `json:"dob"`
	Address          string  `json:"address"`
	PAN              string  `json:"pan"`
	Phone            string  `json:"phone"`
	CreditScore      int     `json:"credit_score"`
	PreapprovedLimit float64 `json:"preapproved_limit"`
	MonthlySalary    float64 `json:"monthly_salary"`
}

// Store looks customers up by their identifiers.
type Store interface {
	ByPAN(ctx context.Context, pan string) (*Customer, error)
	ByPhone(ctx context.Context, phone string) (*Customer, error)
	ByID(ctx context.Context, customerID string) (*Customer, error)
}

// Service wraps the store with format validation and the OTP challenge.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("customer store is required")
	}
	return &Service{store: store}, nil
}

// VerifyPAN validates the PAN format and resolves it to a customer.
func (s *Service) VerifyPAN(ctx context.Context, pan string) (*Customer, error) {
	pan = strings.ToUpper(strings.TrimSpace(pan))
	if !panPattern.MatchString(pan) {
		return nil, &ValidationError{Field: "pan", Reason: "expected 5 letters, 4 digits and a trailing letter, e.g. ABCDE1234F"}
	}
	cust, err := s.store.ByPAN(ctx, pan)
	if err != nil {
		return nil, err
	}
	log.Info().Str("customer_id", cust.CustomerID).Msg("pan verified")
	return cust, nil
}

// VerifyPhone validates the number, resolves the customer and issues the OTP
// challenge. The OTP itself is never returned to the conversation.
func (s *Service) VerifyPhone(ctx context.Context, phone string) (*Customer, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	cust, err := s.store.ByPhone(ctx, normalized)
	if err != nil {
		return nil, err
	}
	log.Info().Str("customer_id", cust.CustomerID).Msg("otp sent")
	return cust, nil
}

// VerifyOTP checks the challenge answer for a phone number.
func (s *Service) VerifyOTP(ctx context.Context, phone, otp string) error {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return err
	}
	if _, err := s.store.ByPhone(ctx, normalized); err != nil {
		return err
	}
	if strings.TrimSpace(otp) != testOTP {
		return ErrOTPMismatch
	}
	return nil
}

// VerifyDetails matches a full KYC submission against the stored record.
func (s *Service) VerifyDetails(ctx context.Context, name, dob, address, pan string) (*Customer, error) {
	cust, err := s.VerifyPAN(ctx, pan)
	if err != nil {
		return nil, err
	}
	if name != "" && !strings.EqualFold(strings.TrimSpace(name), cust.Name) {
		return nil, &ValidationError{Field: "name", Reason: "does not match the record for this PAN"}
	}
	if dob != "" && strings.TrimSpace(dob) != cust.DOB {
		return nil, &ValidationError{Field: "dob", Reason: "does not match the record for this PAN"}
	}
	_ = address // address mismatches are tolerated; postal records drift
	return cust, nil
}

// ByID exposes a direct lookup for the underwriting tools.
func (s *Service) ByID(ctx context.Context, customerID string) (*Customer, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, &ValidationError{Field: "customer_id", Reason: "is empty"}
	}
	return s.store.ByID(ctx, customerID)
}

// NormalizePhone strips an optional +91/91 prefix and validates the 10-digit
// Indian mobile format.
func NormalizePhone(phone string) (string, error) {
	p := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
	p = strings.TrimPrefix(p, "+91")
	if len(p) == 12 && strings.HasPrefix(p, "91") {
		p = p[2:]
	}
	if !phonePattern.MatchString(p) {
		return "", &ValidationError{Field: "phone", Reason: "expected a 10-digit Indian mobile number"}
	}
	return p, nil
}
