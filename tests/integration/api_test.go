package integration

import (
	"testing"
	"time"

	"vireo/internal/models"
)

// bookableWindow is always valid for a fresh all-day business: past any
// lead time, inside the horizon, clear of midnight boundaries.
func bookableWindow() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour).Add(36 * time.Hour)
}

func openAllDayBusiness(t *testing.T, client *TestClient) *models.Business {
	return client.CreateBusiness(t, &models.CreateBusinessRequest{
		Name:        "Integration Clinic",
		LeadTimeMin: 0,
		HorizonDays: 90,
		OpenMinute:  0,
		CloseMinute: 1440,
	})
}

// TestAPI_HealthCheck tests the API health endpoint
func TestAPI_HealthCheck(t *testing.T) {
	RequireIntegration(t)
	client := NewTestClient(APIBaseURL)

	client.HealthCheck(t)
}

// TestAPI_ServiceCatalog verifies the seeded catalog is served
func TestAPI_ServiceCatalog(t *testing.T) {
	RequireIntegration(t)
	client := NewTestClient(APIBaseURL)

	services := client.ListServices(t)
	if len(services) == 0 {
		t.Fatal("Expected seeded services in the catalog")
	}

	found := false
	for _, svc := range services {
		if svc.ID == "consultation" {
			found = true
			if svc.PriceCents != 15000 {
				t.Fatalf("Expected consultation price 15000, got %d", svc.PriceCents)
			}
		}
	}
	if !found {
		t.Fatal("Expected 'consultation' in the service catalog")
	}
}

// TestAPI_AppointmentFlow tests the complete appointment lifecycle:
// book, collide, cancel, rebook the freed window.
func TestAPI_AppointmentFlow(t *testing.T) {
	RequireIntegration(t)
	client := NewTestClient(APIBaseURL)

	business := openAllDayBusiness(t, client)
	window := bookableWindow()

	// 1. Book a window. Cash keeps the flow local to the API.
	booked, status := client.BookAppointment(t, &models.BookAppointmentRequest{
		BusinessID:  business.ID,
		ServiceID:   "consultation",
		WindowStart: window,
		Customer:    models.CustomerInfo{Name: "Dana"},
		Method:      "cash",
	})
	if status != 201 {
		t.Fatalf("Expected 201 booking a free window, got %d", status)
	}
	if booked.PaymentID == "" {
		t.Fatal("Expected a payment to be opened with the appointment")
	}

	// 2. The same window must now be refused.
	_, status = client.BookAppointment(t, &models.BookAppointmentRequest{
		BusinessID:  business.ID,
		ServiceID:   "consultation",
		WindowStart: window,
		Customer:    models.CustomerInfo{Name: "Rival"},
		Method:      "cash",
	})
	if status != 409 {
		t.Fatalf("Expected 409 for an occupied window, got %d", status)
	}

	// 3. Back-to-back window (ends touch) is allowed.
	_, status = client.BookAppointment(t, &models.BookAppointmentRequest{
		BusinessID:  business.ID,
		ServiceID:   "consultation",
		WindowStart: window.Add(30 * time.Minute),
		Customer:    models.CustomerInfo{Name: "Neighbor"},
		Method:      "cash",
	})
	if status != 201 {
		t.Fatalf("Expected 201 for a back-to-back window, got %d", status)
	}

	// 4. Cancel the first appointment and its payment.
	client.CancelAppointment(t, booked.Appointment.ID)

	payment := client.GetPayment(t, booked.PaymentID)
	if payment.Status != models.PaymentCancelled {
		t.Fatalf("Expected cancelled payment after appointment cancel, got %s", payment.Status)
	}

	// 5. The freed window is bookable again.
	_, status = client.BookAppointment(t, &models.BookAppointmentRequest{
		BusinessID:  business.ID,
		ServiceID:   "consultation",
		WindowStart: window,
		Customer:    models.CustomerInfo{Name: "Late comer"},
		Method:      "cash",
	})
	if status != 201 {
		t.Fatalf("Expected 201 rebooking a cancelled window, got %d", status)
	}
}

// TestAPI_AvailabilityReflectsBookings checks that a booked window
// disappears from the availability listing.
func TestAPI_AvailabilityReflectsBookings(t *testing.T) {
	RequireIntegration(t)
	client := NewTestClient(APIBaseURL)

	business := openAllDayBusiness(t, client)
	window := bookableWindow()
	date := window.Format("2006-01-02")

	before := client.Availability(t, business.ID, "consultation", date)
	if len(before.Slots) == 0 {
		t.Fatal("Expected open slots for a fresh business")
	}

	_, status := client.BookAppointment(t, &models.BookAppointmentRequest{
		BusinessID:  business.ID,
		ServiceID:   "consultation",
		WindowStart: window,
		Customer:    models.CustomerInfo{Name: "Dana"},
		Method:      "cash",
	})
	if status != 201 {
		t.Fatalf("Expected 201 booking a free window, got %d", status)
	}

	after := client.Availability(t, business.ID, "consultation", date)
	if len(after.Slots) != len(before.Slots)-1 {
		t.Fatalf("Expected one fewer slot after booking: before %d, after %d",
			len(before.Slots), len(after.Slots))
	}
	for _, slot := range after.Slots {
		if slot.Start.Equal(window) {
			t.Fatal("Booked window still offered as available")
		}
	}
}

// TestAPI_EventCapacity exhausts a small free event and verifies the
// API refuses registrations past capacity.
func TestAPI_EventCapacity(t *testing.T) {
	RequireIntegration(t)
	client := NewTestClient(APIBaseURL)

	business := openAllDayBusiness(t, client)

	eventID := client.CreateEvent(t, &models.CreateEventRequest{
		BusinessID: business.ID,
		Title:      "Open workshop",
		StartsAt:   bookableWindow(),
		Capacity:   2,
	})

	for i := 0; i < 2; i++ {
		_, status := client.RegisterForEvent(t, &models.RegisterForEventRequest{
			EventID:  eventID,
			Customer: models.CustomerInfo{Name: "Guest"},
		})
		if status != 201 {
			t.Fatalf("Expected 201 within capacity, got %d on attempt %d", status, i+1)
		}
	}

	_, status := client.RegisterForEvent(t, &models.RegisterForEventRequest{
		EventID:  eventID,
		Customer: models.CustomerInfo{Name: "One too many"},
	})
	if status != 409 {
		t.Fatalf("Expected 409 past capacity, got %d", status)
	}
}

// TestAPI_PaidEventOpensPayment registers for a priced event and checks
// the opened payment carries the catalog amount.
func TestAPI_PaidEventOpensPayment(t *testing.T) {
	RequireIntegration(t)
	client := NewTestClient(APIBaseURL)

	business := openAllDayBusiness(t, client)
	serviceID := "treatment"

	eventID := client.CreateEvent(t, &models.CreateEventRequest{
		BusinessID: business.ID,
		Title:      "Masterclass",
		ServiceID:  &serviceID,
		StartsAt:   bookableWindow(),
		Capacity:   10,
	})

	registered, status := client.RegisterForEvent(t, &models.RegisterForEventRequest{
		EventID:  eventID,
		Customer: models.CustomerInfo{Name: "Guest"},
		Method:   "cash",
	})
	if status != 201 {
		t.Fatalf("Expected 201 registering for a paid event, got %d", status)
	}
	if registered.PaymentID == "" {
		t.Fatal("Expected a payment for a priced event")
	}

	payment := client.GetPayment(t, registered.PaymentID)
	if payment.AmountCents != 30000 {
		t.Fatalf("Expected catalog price 30000, got %d", payment.AmountCents)
	}
	if payment.Status != models.PaymentPending {
		t.Fatalf("Expected pending payment for a manual method, got %s", payment.Status)
	}
}
