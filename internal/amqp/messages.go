package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// OverdueInvoiceMessage carries one scraped overdue invoice amount from the
// scraper to the worker that persists it. Amount is the text shown by the
// portal; the worker validates and normalises it.
type OverdueInvoiceMessage struct {
	CentreID   int64     `json:"centre_id"`
	CentreName string    `json:"centre_name,omitempty"`
	APIID      string    `json:"api_id"`
	Amount     string    `json:"amount"`
	ScrapedAt  time.Time `json:"scraped_at"`
}

var ErrInvalidMessage = errors.New("invalid overdue invoice message")

// NewOverdueInvoiceMessage stamps the message with the current time.
func NewOverdueInvoiceMessage(centreID int64, centreName, apiID, amount string) *OverdueInvoiceMessage {
	return &OverdueInvoiceMessage{
		CentreID:   centreID,
		CentreName: centreName,
		APIID:      apiID,
		Amount:     amount,
		ScrapedAt:  time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *OverdueInvoiceMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// OverdueInvoiceMessageFromJSON decodes and checks a message body.
func OverdueInvoiceMessageFromJSON(data []byte) (*OverdueInvoiceMessage, error) {
	var msg OverdueInvoiceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.CentreID <= 0 {
		return nil, fmt.Errorf("%w: missing centre_id", ErrInvalidMessage)
	}
	if strings.TrimSpace(msg.Amount) == "" {
		return nil, fmt.Errorf("%w: missing amount", ErrInvalidMessage)
	}
	return &msg, nil
}

type rejectError struct{ err error }

func (e *rejectError) Error() string { return e.err.Error() }
func (e *rejectError) Unwrap() error { return e.err }

// Reject marks a handler error as permanent: the delivery is dropped
// instead of being requeued.
func Reject(err error) error {
	if err == nil {
		return nil
	}
	return &rejectError{err: err}
}

// IsRejected reports whether err was marked with Reject.
func IsRejected(err error) bool {
	var r *rejectError
	return errors.As(err, &r)
}
