package service

import "brrowbooking/internal/db"

// TransactionEvents is the typed observer owned by the transaction record.
// Subscribers (notifications, the messaging broker) are fire-and-forget:
// none of them can fail the payment flow.
type TransactionEvents interface {
	TransactionSucceeded(tx db.Transaction)
	TransactionFailed(tx db.Transaction, reason string)
	TransactionConfirmationFailed(tx db.Transaction)
}

// EventFanout broadcasts to every subscriber in order.
type EventFanout []TransactionEvents

func (f EventFanout) TransactionSucceeded(tx db.Transaction) {
	for _, s := range f {
		s.TransactionSucceeded(tx)
	}
}

func (f EventFanout) TransactionFailed(tx db.Transaction, reason string) {
	for _, s := range f {
		s.TransactionFailed(tx, reason)
	}
}

func (f EventFanout) TransactionConfirmationFailed(tx db.Transaction) {
	for _, s := range f {
		s.TransactionConfirmationFailed(tx)
	}
}
