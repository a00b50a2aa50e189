package userdir

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Christabll/IST-LeaveManagementService/internal/shared/apperror"

	"go.uber.org/zap"
)

// Client resolves user attributes from the external user directory.
// All calls are time-bounded; callers treat failures as best-effort
// and must never let them break a committed transaction.
//go:generate mockgen -source=client.go -destination=mock/client_mock.go -package=mock
type Client interface {
	GetUserEmail(ctx context.Context, userID string) (string, error)
	GetUserIDByEmail(ctx context.Context, email string) (string, error)
	GetUserFullName(ctx context.Context, userID string) (string, error)
	GetUserDepartment(ctx context.Context, userID string) (string, error)
	GetUserRole(ctx context.Context, userID string) (string, error)
	GetUsersByRole(ctx context.Context, role string) ([]string, error)
}

type httpClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger ...*zap.Logger) Client {
	l := zap.L().Named("userdir.client")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("userdir.client")
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &httpClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  l,
	}
}

func (c *httpClient) GetUserEmail(ctx context.Context, userID string) (string, error) {
	return c.getString(ctx, "/api/v1/auth/users/"+url.PathEscape(userID)+"/email")
}

func (c *httpClient) GetUserIDByEmail(ctx context.Context, email string) (string, error) {
	return c.getString(ctx, "/api/v1/auth/users/by-email/"+url.PathEscape(email)+"/id")
}

func (c *httpClient) GetUserFullName(ctx context.Context, userID string) (string, error) {
	return c.getString(ctx, "/api/v1/auth/users/"+url.PathEscape(userID)+"/fullname")
}

func (c *httpClient) GetUserDepartment(ctx context.Context, userID string) (string, error) {
	return c.getString(ctx, "/api/v1/auth/users/"+url.PathEscape(userID)+"/department")
}

func (c *httpClient) GetUserRole(ctx context.Context, userID string) (string, error) {
	return c.getString(ctx, "/api/v1/auth/users/"+url.PathEscape(userID)+"/role")
}

func (c *httpClient) GetUsersByRole(ctx context.Context, role string) ([]string, error) {
	body, err := c.get(ctx, "/api/v1/auth/users/role/"+url.PathEscape(role))
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDependencyUnavailable,
			"user directory returned an unexpected payload", http.StatusServiceUnavailable)
	}
	return ids, nil
}

func (c *httpClient) getString(ctx context.Context, path string) (string, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return "", err
	}

	// The directory returns bare strings for attribute endpoints but
	// may wrap them as JSON strings.
	var s string
	if json.Unmarshal(body, &s) == nil {
		return s, nil
	}
	return string(body), nil
}

func (c *httpClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("user directory request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, apperror.Wrap(err, apperror.CodeDependencyUnavailable,
			"user directory is unavailable", http.StatusServiceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperror.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("user directory returned non-200",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, apperror.Wrap(
			fmt.Errorf("status %d", resp.StatusCode),
			apperror.CodeDependencyUnavailable,
			"user directory is unavailable",
			http.StatusServiceUnavailable,
		)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
