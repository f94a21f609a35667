package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"brrowbooking/internal/db"
	apperrors "brrowbooking/internal/errors"
)

// Contact is the slice of a user profile notifications need.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ContactDirectory resolves user ids to contact details. The identity
// service is an external collaborator.
type ContactDirectory interface {
	GetContact(ctx context.Context, userID string) (*Contact, error)
}

// HTTPContactClient talks to the identity service's REST API.
type HTTPContactClient struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPContactClient(baseURL string) *HTTPContactClient {
	return &HTTPContactClient{BaseURL: baseURL, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (c *HTTPContactClient) GetContact(ctx context.Context, userID string) (*Contact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/users/%s/contact", c.BaseURL, url.PathEscape(userID)), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity service unreachable: %w", apperrors.ErrNetwork)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("identity service returned %d: %w", resp.StatusCode, apperrors.ErrNetwork)
	}
	var contact Contact
	if err := json.NewDecoder(resp.Body).Decode(&contact); err != nil {
		return nil, fmt.Errorf("error decoding contact: %w", err)
	}
	return &contact, nil
}

// NotifyService sends booking-outcome email and SMS. It subscribes to
// transaction events and is fully fire-and-forget: delivery failures are
// logged, never propagated into the payment flow.
type NotifyService struct {
	contacts ContactDirectory
	log      *logrus.Logger
}

func NewNotifyService(contacts ContactDirectory, log *logrus.Logger) *NotifyService {
	return &NotifyService{contacts: contacts, log: log}
}

func (s *NotifyService) TransactionSucceeded(tx db.Transaction) {
	subject := fmt.Sprintf("Your Brrow booking is confirmed - %s", tx.ID)
	body := fmt.Sprintf(
		"Your %s is confirmed.\n\nTransaction: %s\nTotal charged: $%.2f\n\nThank you for using Brrow.",
		tx.Type, tx.ID, float64(tx.AmountCents)/100,
	)
	sms := fmt.Sprintf("Brrow: your %s %s is confirmed! Details in your email.", tx.Type, tx.ID)
	s.deliver(tx.BuyerID, subject, body, sms)
}

func (s *NotifyService) TransactionFailed(tx db.Transaction, reason string) {
	subject := fmt.Sprintf("Your Brrow payment did not go through - %s", tx.ID)
	body := fmt.Sprintf(
		"Your payment for transaction %s failed: %s\n\nYou can try again from the listing page.",
		tx.ID, reason,
	)
	s.deliver(tx.BuyerID, subject, body, "")
}

func (s *NotifyService) TransactionConfirmationFailed(tx db.Transaction) {
	// Deliberately different wording from a failure: the charge went
	// through. The buyer must contact support, not retry.
	subject := fmt.Sprintf("Action needed on your Brrow booking - %s", tx.ID)
	body := fmt.Sprintf(
		"Your payment for transaction %s succeeded, but we could not confirm the booking."+
			"\n\nPlease contact support and do not submit the booking again.",
		tx.ID,
	)
	sms := fmt.Sprintf("Brrow: payment for %s succeeded but confirmation is pending. Please contact support.", tx.ID)
	s.deliver(tx.BuyerID, subject, body, sms)
}

func (s *NotifyService) deliver(userID, subject, body, sms string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		contact, err := s.contacts.GetContact(ctx, userID)
		if err != nil {
			s.log.WithError(err).WithField("user_id", userID).Error("could not resolve contact for notification")
			return
		}
		if err := sendEmailWithSendGrid(contact.Email, contact.Name, subject, body); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Error("notification email failed")
		}
		if sms != "" && contact.Phone != "" {
			if err := sendSMS(contact.Phone, sms); err != nil {
				s.log.WithError(err).WithField("user_id", userID).Error("notification SMS failed")
			}
		}
	}()
}

func sendEmailWithSendGrid(toEmail, toName, subject, plainTextContent string) error {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY not set")
	}
	fromEmail := os.Getenv("SENDGRID_FROM_EMAIL")
	if fromEmail == "" {
		return fmt.Errorf("SENDGRID_FROM_EMAIL not set")
	}
	fromName := os.Getenv("SENDGRID_FROM_NAME")
	if fromName == "" {
		fromName = "Brrow"
	}

	from := mail.NewEmail(fromName, fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainTextContent, "")

	client := sendgrid.NewSendClient(apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("error sending email via SendGrid: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("SendGrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

func sendSMS(toNumber, messageBody string) error {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	fromNumber := os.Getenv("TWILIO_FROM_NUMBER")
	if accountSid == "" || authToken == "" || fromNumber == "" {
		return fmt.Errorf("Twilio credentials not fully configured")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
	params := &openapi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(fromNumber)
	params.SetBody(messageBody)

	if _, err := client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("error sending SMS: %w", err)
	}
	return nil
}
