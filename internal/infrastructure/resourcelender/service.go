package resourcelender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/teleport-bridge/teleportd/internal/core/ports"
)

type capacityResponse struct {
	Available int64 `json:"available"`
	Max       int64 `json:"max"`
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

type borrowRequest struct {
	Account  string `json:"account"`
	Resource string `json:"resource"`
	Payment  string `json:"payment"`
}

type service struct {
	baseUrl    string
	account    string
	httpClient *http.Client
}

// NewService builds a client for a resource lender HTTP API. The lender
// sells metered compute capacity for the given signing account.
func NewService(baseUrl, account string) ports.ResourceLender {
	return &service{
		baseUrl: baseUrl,
		account: account,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *service) Capacity(ctx context.Context, resource string) (*ports.Capacity, error) {
	endpoint := fmt.Sprintf(
		"%s/v1/capacity?account=%s&resource=%s",
		s.baseUrl, url.QueryEscape(s.account), url.QueryEscape(resource),
	)
	buf, err := s.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp capacityResponse
	if err := json.Unmarshal(buf, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse capacity response: %s", err)
	}
	return &ports.Capacity{Available: resp.Available, Max: resp.Max}, nil
}

func (s *service) Balance(ctx context.Context) (domain.Asset, error) {
	endpoint := fmt.Sprintf(
		"%s/v1/balance?account=%s", s.baseUrl, url.QueryEscape(s.account),
	)
	buf, err := s.get(ctx, endpoint)
	if err != nil {
		return domain.Asset{}, err
	}

	var resp balanceResponse
	if err := json.Unmarshal(buf, &resp); err != nil {
		return domain.Asset{}, fmt.Errorf("failed to parse balance response: %s", err)
	}
	return domain.ParseAsset(resp.Balance)
}

func (s *service) Borrow(
	ctx context.Context, resource string, payment domain.Asset,
) error {
	payload, err := json.Marshal(borrowRequest{
		Account:  s.account,
		Resource: resource,
		Payment:  payment.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal borrow request: %s", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, "POST", fmt.Sprintf("%s/v1/borrow", s.baseUrl), bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %s", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to borrow %s: %s", resource, err)
	}
	// nolint
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("lender refused borrow with status %d: %s", resp.StatusCode, buf)
	}
	return nil
}

func (s *service) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %s", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	// nolint
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lender returned status %d: %s", resp.StatusCode, buf)
	}
	return buf, nil
}
