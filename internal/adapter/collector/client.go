package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/user/feed-harvester/internal/entity"
	"github.com/user/feed-harvester/pkg/logger"
)

var (
	ErrUnexpectedStatus = errors.New("collector returned a non-2xx status")
	ErrInvalidResponse  = errors.New("collector response is not valid JSON")
)

// StatusError carries the HTTP status of a rejected forward.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrUnexpectedStatus, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// StatusCode exposes the status to callers recording failed forwards.
func (e *StatusError) StatusCode() int { return e.Code }

// Client posts records to the collector endpoint.
type Client struct {
	endpoint string
	http     *resty.Client
	log      *slog.Logger
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	return &Client{
		endpoint: endpoint,
		http:     client,
		log:      logger.WithComponent("collector"),
	}
}

// Forward posts one record. Success is a 2xx whose body parses as JSON.
func (c *Client) Forward(ctx context.Context, record entity.Record) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(record).
		Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("posting record %s: %w", record.ID, err)
	}
	if !res.IsSuccess() {
		return &StatusError{Code: res.StatusCode(), Body: truncate(res.String(), 200)}
	}

	var reply any
	if err := json.Unmarshal(res.Body(), &reply); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	c.log.Info("Collector accepted record", "id", record.ID, "status", res.StatusCode(), "response", reply)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
