package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vee2004/collaborative-todo-board/models"

	"github.com/sony/gobreaker"
)

// UserClient reads the user directory from the external users service. The
// directory's response order is preserved; smart assignment uses it as its
// tie-break.
type UserClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewUserClient(baseURL string, breaker *gobreaker.CircuitBreaker) *UserClient {
	return &UserClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		breaker: breaker,
	}
}

func (c *UserClient) ListUsers(ctx context.Context) ([]models.User, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/users", nil)
		if err != nil {
			return nil, fmt.Errorf("error creating request to users-service: %v", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("error sending request to users-service: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("users-service error (%d): %s", resp.StatusCode, string(body))
		}

		var users []models.User
		if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
			return nil, fmt.Errorf("failed to decode users-service response: %v", err)
		}
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.User), nil
}
