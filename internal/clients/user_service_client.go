// Package clients talks to a remote user service that owns users and
// balances. It speaks the same HTTP surface this service exposes under
// /users and /transfers.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	dto "time-exchange.com/time-exchange/internal/data_models"
	apperrors "time-exchange.com/time-exchange/internal/errors"
	model "time-exchange.com/time-exchange/internal/models"
	"time-exchange.com/time-exchange/internal/services"
)

type UserServiceClient struct {
	BaseURL string
	Client  *http.Client
	lookups singleflight.Group
}

func NewUserServiceClient(baseURL string, timeout time.Duration) *UserServiceClient {
	return &UserServiceClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

// UserExists answers false for any failure, including transport errors.
// Concurrent lookups of the same id share one request. The shared request is
// detached from any single caller's cancellation and bounded by the client
// timeout; each caller still stops waiting when its own ctx is done.
func (c *UserServiceClient) UserExists(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}

	shared := context.WithoutCancel(ctx)
	results := c.lookups.DoChan(userID, func() (interface{}, error) {
		status, _, err := c.do(shared, http.MethodGet, "/users/"+url.PathEscape(userID), nil)
		if err != nil {
			return false, err
		}
		return status == http.StatusOK, nil
	})

	select {
	case res := <-results:
		if res.Err != nil {
			log.Printf("user service: lookup of %s failed, treating as unknown: %v", userID, res.Err)
			return false
		}
		return res.Val.(bool)
	case <-ctx.Done():
		log.Printf("user service: lookup of %s abandoned, treating as unknown: %v", userID, ctx.Err())
		return false
	}
}

// Ping checks the remote service's health endpoint.
func (c *UserServiceClient) Ping(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: health returned http %d", errRemote, status)
	}
	return nil
}

// Transfer asks the remote service to move credits. Definite refusals come
// back as the matching sentinel; anything else is returned as a plain error
// because the transfer may or may not have been applied.
func (c *UserServiceClient) Transfer(ctx context.Context, req services.TransferRequest) (*model.Transfer, error) {
	payload, err := json.Marshal(dto.TransferRequest{
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		Amount:     req.Amount,
		Reference:  req.Reference,
	})
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(ctx, http.MethodPost, "/transfers", payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, remoteError(status, body)
	}

	var transfer model.Transfer
	if err := json.Unmarshal(body, &transfer); err != nil {
		return nil, fmt.Errorf("decode transfer response: %w", err)
	}
	return &transfer, nil
}

func (c *UserServiceClient) LookupTransfer(ctx context.Context, reference string) (*model.Transfer, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/transfers/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, apperrors.ErrTransferNotFound
	}
	if status != http.StatusOK {
		return nil, remoteError(status, body)
	}

	var transfer model.Transfer
	if err := json.Unmarshal(body, &transfer); err != nil {
		return nil, fmt.Errorf("decode transfer response: %w", err)
	}
	return &transfer, nil
}

func (c *UserServiceClient) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	endpoint, err := c.resolve(path)
	if err != nil {
		return 0, nil, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *UserServiceClient) resolve(path string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", err
	}
	rel, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(rel).String(), nil
}

var errRemote = errors.New("user service error")

// remoteError maps a refusal code back to its sentinel.
func remoteError(status int, body []byte) error {
	var resp dto.ErrorResponse
	_ = json.Unmarshal(body, &resp)

	switch resp.Code {
	case apperrors.ErrInsufficientFunds.Code:
		return fmt.Errorf("%w: %s", apperrors.ErrInsufficientFunds, resp.Message)
	case apperrors.ErrUserNotFound.Code:
		return fmt.Errorf("%w: %s", apperrors.ErrUserNotFound, resp.Message)
	case apperrors.ErrBadRequest.Code:
		return fmt.Errorf("%w: %s", apperrors.ErrBadRequest, resp.Message)
	}
	return fmt.Errorf("%w: http %d: %s", errRemote, status, string(body))
}
