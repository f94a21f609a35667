package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"brrowbooking/internal/entities"
	apperrors "brrowbooking/internal/errors"
)

// ListingService is the contract this service needs from the listing catalog.
// The catalog is an external collaborator; everything here consumes it
// through this interface so tests can substitute it.
type ListingService interface {
	GetListing(ctx context.Context, listingID string) (*entities.Listing, error)
	GetAvailability(ctx context.Context, listingID string, month entities.Month) ([]entities.AvailabilityDay, error)
}

// HTTPListingClient talks to the listing service's REST API.
type HTTPListingClient struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPListingClient(baseURL string) *HTTPListingClient {
	return &HTTPListingClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPListingClient) GetListing(ctx context.Context, listingID string) (*entities.Listing, error) {
	var listing entities.Listing
	path := fmt.Sprintf("/listings/%s", url.PathEscape(listingID))
	if err := c.getJSON(ctx, path, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *HTTPListingClient) GetAvailability(ctx context.Context, listingID string, month entities.Month) ([]entities.AvailabilityDay, error) {
	var days []entities.AvailabilityDay
	path := fmt.Sprintf("/listings/%s/availability?month=%s", url.PathEscape(listingID), month.String())
	if err := c.getJSON(ctx, path, &days); err != nil {
		return nil, err
	}
	return days, nil
}

func (c *HTTPListingClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("listing service unreachable: %w", apperrors.ErrNetwork)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("listing service returned %d: %w", resp.StatusCode, apperrors.ErrNetwork)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding listing service response: %w", err)
	}
	return nil
}
