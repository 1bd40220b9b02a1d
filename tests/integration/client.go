package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"vireo/internal/models"
)

const APIBaseURL = "http://localhost:8082"

// RequireIntegration skips the test unless a live stack is declared via
// INTEGRATION_TESTS=1 (API, Postgres, NATS running locally).
func RequireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run against a live API")
	}
}

// TestClient provides methods for testing the API
type TestClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

func (c *TestClient) HealthCheck(t *testing.T) {
	resp := c.makeRequest(t, "GET", "/health", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
}

func (c *TestClient) ListServices(t *testing.T) []models.ServiceDefinition {
	resp := c.makeRequest(t, "GET", "/api/services", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var services []models.ServiceDefinition
	if err := json.NewDecoder(resp.Body).Decode(&services); err != nil {
		t.Fatalf("Failed to decode services response: %v", err)
	}
	return services
}

// BookAppointment books a window and returns the response plus the HTTP
// status, so conflict tests can assert on 409 without failing.
func (c *TestClient) BookAppointment(t *testing.T, req *models.BookAppointmentRequest) (*models.BookAppointmentResponse, int) {
	resp := c.makeRequest(t, "POST", "/api/appointments", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, resp.StatusCode
	}

	var booked models.BookAppointmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&booked); err != nil {
		t.Fatalf("Failed to decode appointment response: %v", err)
	}
	return &booked, resp.StatusCode
}

func (c *TestClient) CreateBusiness(t *testing.T, req *models.CreateBusinessRequest) *models.Business {
	resp := c.makeRequest(t, "POST", "/api/businesses", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 201, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var business models.Business
	if err := json.NewDecoder(resp.Body).Decode(&business); err != nil {
		t.Fatalf("Failed to decode business response: %v", err)
	}
	return &business
}

func (c *TestClient) CancelAppointment(t *testing.T, appointmentID string) {
	resp := c.makeRequest(t, "PATCH", "/api/appointments/cancel", models.CancelAppointmentRequest{
		AppointmentID: appointmentID,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}
}

func (c *TestClient) CreateEvent(t *testing.T, req *models.CreateEventRequest) int64 {
	resp := c.makeRequest(t, "POST", "/api/events", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 201, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var created models.CreateEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode event response: %v", err)
	}
	return created.ID
}

func (c *TestClient) RegisterForEvent(t *testing.T, req *models.RegisterForEventRequest) (*models.RegisterForEventResponse, int) {
	resp := c.makeRequest(t, "POST", "/api/events/register", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, resp.StatusCode
	}

	var registered models.RegisterForEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&registered); err != nil {
		t.Fatalf("Failed to decode registration response: %v", err)
	}
	return &registered, resp.StatusCode
}

func (c *TestClient) GetPayment(t *testing.T, paymentID string) *models.Payment {
	resp := c.makeRequest(t, "GET", "/api/payments/"+paymentID, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var payment models.Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		t.Fatalf("Failed to decode payment response: %v", err)
	}
	return &payment
}

func (c *TestClient) Availability(t *testing.T, businessID int64, serviceID, date string) *models.AvailabilityResponse {
	path := fmt.Sprintf("/api/availability?business_id=%d&service_id=%s&date=%s", businessID, serviceID, date)
	resp := c.makeRequest(t, "GET", path, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var availability models.AvailabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&availability); err != nil {
		t.Fatalf("Failed to decode availability response: %v", err)
	}
	return &availability
}
