package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	apperrors "vireo/internal/errors"
	"vireo/internal/metrics"
	"vireo/internal/models"
)

// BookingService owns the reservation flows: business time windows and
// finite-capacity events. All contention decisions happen in the store's
// atomic operations; this layer sequences them with payment opening and
// performs the compensating steps when a later stage fails.
type BookingService struct {
	services     ServiceStore
	businesses   BusinessStore
	appointments AppointmentStore
	events       EventStore
	payments     *PaymentService
	publisher    Publisher
	metrics      *metrics.Metrics

	now func() time.Time
}

func NewBookingService(deps Deps, payments *PaymentService) *BookingService {
	return &BookingService{
		services:     deps.Services,
		businesses:   deps.Businesses,
		appointments: deps.Appointments,
		events:       deps.Events,
		payments:     payments,
		publisher:    deps.Publisher,
		metrics:      deps.Metrics,
		now:          time.Now,
	}
}

// BookAppointment reserves a window and opens the payment for it. The
// reservation is committed first: if the gateway cannot produce a payment
// page the appointment is cancelled again so the window frees up.
func (s *BookingService) BookAppointment(ctx context.Context, req *models.BookAppointmentRequest) (*models.BookAppointmentResponse, error) {
	svc, err := s.ResolveService(ctx, req.ServiceID)
	if err != nil {
		s.countBooking(models.KindAppointment, apperrors.CodeOf(err))
		return nil, err
	}

	method, err := normalizeMethod(req.Method)
	if err != nil {
		return nil, err
	}

	business, err := s.businesses.GetByID(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, apperrors.ErrBusinessNotFound
	}

	start := req.WindowStart.UTC()
	end := start.Add(time.Duration(svc.DurationMinutes) * time.Minute)

	if !s.windowBookable(business, start, end) {
		s.countBooking(models.KindAppointment, apperrors.ErrInvalidWindow.Code)
		return nil, apperrors.ErrInvalidWindow
	}

	appt := &models.Appointment{
		BusinessID:    business.ID,
		ServiceID:     svc.ID,
		CustomerName:  req.Customer.Name,
		CustomerEmail: req.Customer.Email,
		CustomerPhone: req.Customer.Phone,
		StartsAt:      start,
		EndsAt:        end,
	}

	if err := s.appointments.Reserve(ctx, appt); err != nil {
		s.countBooking(models.KindAppointment, apperrors.CodeOf(err))
		return nil, err
	}

	payment, err := s.payments.OpenPending(ctx, models.KindAppointment, appt.ID, svc, business, method)
	if err != nil {
		s.rollbackAppointment(ctx, appt.ID, "")
		return nil, err
	}

	var paymentURL string
	if method == models.MethodGateway {
		paymentURL, err = s.payments.StartGateway(ctx, payment, svc.DisplayName, req.Customer.Email)
		if err != nil {
			s.rollbackAppointment(ctx, appt.ID, payment.ID)
			s.countBooking(models.KindAppointment, apperrors.ErrGatewayUnavailable.Code)
			return nil, apperrors.ErrGatewayUnavailable.WithCause(err)
		}
	}

	s.publishConfirmed(models.KindAppointment, appt.ID, business.ID, req.Customer, start)
	s.countBooking(models.KindAppointment, "confirmed")

	return &models.BookAppointmentResponse{
		Appointment: appt,
		PaymentID:   payment.ID,
		PaymentURL:  paymentURL,
	}, nil
}

// rollbackAppointment compensates a reservation whose payment never got
// off the ground: the window is freed and the dead payment row removed.
func (s *BookingService) rollbackAppointment(ctx context.Context, apptID, paymentID string) {
	if err := s.appointments.Cancel(ctx, apptID); err != nil {
		slog.Error("Failed to cancel appointment during rollback", "appointment_id", apptID, "error", err)
	}
	if paymentID != "" {
		if err := s.payments.store.Delete(ctx, paymentID); err != nil {
			slog.Error("Failed to delete payment during rollback", "payment_id", paymentID, "error", err)
		}
	}
}

// RegisterForEvent claims one seat of a finite-capacity event. The
// payment is opened as pending before the seat claim: a capacity loss
// then costs only a force-cancelled payment row, whereas claiming first
// could leak a seat if the payment insert failed.
func (s *BookingService) RegisterForEvent(ctx context.Context, req *models.RegisterForEventRequest) (*models.RegisterForEventResponse, error) {
	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}

	if !event.StartsAt.After(s.now()) {
		s.countBooking(models.KindEvent, apperrors.ErrInvalidWindow.Code)
		return nil, apperrors.ErrInvalidWindow
	}

	method, err := normalizeMethod(req.Method)
	if err != nil {
		return nil, err
	}

	// Events without a catalog service are free: no payment, the seat is
	// final the moment the claim wins.
	if event.ServiceID == nil {
		occ := &models.Occupant{
			EventID:       event.ID,
			CustomerName:  req.Customer.Name,
			CustomerEmail: req.Customer.Email,
			CustomerPhone: req.Customer.Phone,
			Status:        models.OccupantFree,
		}
		if err := s.events.ClaimSeat(ctx, occ); err != nil {
			s.countBooking(models.KindEvent, apperrors.CodeOf(err))
			return nil, err
		}

		s.publishConfirmed(models.KindEvent, strconv.FormatInt(occ.ID, 10), event.BusinessID, req.Customer, event.StartsAt)
		s.countBooking(models.KindEvent, "confirmed")
		return &models.RegisterForEventResponse{Occupant: occ}, nil
	}

	svc, err := s.ResolveService(ctx, *event.ServiceID)
	if err != nil {
		s.countBooking(models.KindEvent, apperrors.CodeOf(err))
		return nil, err
	}

	business, err := s.businesses.GetByID(ctx, event.BusinessID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, apperrors.ErrBusinessNotFound
	}

	payment, err := s.payments.OpenPending(ctx, models.KindEvent, "", svc, business, method)
	if err != nil {
		return nil, err
	}

	occ := &models.Occupant{
		EventID:       event.ID,
		CustomerName:  req.Customer.Name,
		CustomerEmail: req.Customer.Email,
		CustomerPhone: req.Customer.Phone,
		Status:        models.OccupantPendingPayment,
	}

	if err := s.events.ClaimSeat(ctx, occ); err != nil {
		s.payments.ForceCancel(ctx, payment.ID, "seat claim lost")
		s.countBooking(models.KindEvent, apperrors.CodeOf(err))
		return nil, err
	}

	occupantID := strconv.FormatInt(occ.ID, 10)
	if err := s.payments.store.BindReservation(ctx, payment.ID, occupantID); err != nil {
		slog.Error("Failed to bind payment to occupant", "payment_id", payment.ID, "occupant_id", occupantID, "error", err)
	}
	payment.ReservationID = occupantID

	var paymentURL string
	if method == models.MethodGateway {
		paymentURL, err = s.payments.StartGateway(ctx, payment, event.Title, req.Customer.Email)
		if err != nil {
			s.rollbackOccupant(ctx, occ.ID, payment.ID)
			s.countBooking(models.KindEvent, apperrors.ErrGatewayUnavailable.Code)
			return nil, apperrors.ErrGatewayUnavailable.WithCause(err)
		}
	}

	s.publishConfirmed(models.KindEvent, occupantID, event.BusinessID, req.Customer, event.StartsAt)
	s.countBooking(models.KindEvent, "confirmed")

	return &models.RegisterForEventResponse{
		Occupant:   occ,
		PaymentID:  payment.ID,
		PaymentURL: paymentURL,
	}, nil
}

// rollbackOccupant gives the seat back and removes the payment row after
// the gateway failed to open a page for an already-claimed seat.
func (s *BookingService) rollbackOccupant(ctx context.Context, occupantID int64, paymentID string) {
	if err := s.events.ReleaseSeat(ctx, occupantID); err != nil {
		slog.Error("Failed to release seat during rollback", "occupant_id", occupantID, "error", err)
	}
	if err := s.payments.store.Delete(ctx, paymentID); err != nil {
		slog.Error("Failed to delete payment during rollback", "payment_id", paymentID, "error", err)
	}
}

// CancelAppointment frees the window and voids any live payment for it.
// Cancelling twice is a no-op.
func (s *BookingService) CancelAppointment(ctx context.Context, appointmentID string) error {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt == nil {
		return apperrors.ErrReservationNotFound
	}
	if appt.Status == models.ReservationCancelled {
		return nil
	}

	if err := s.appointments.Cancel(ctx, appointmentID); err != nil {
		return err
	}

	if err := s.payments.VoidForReservation(ctx, models.KindAppointment, appointmentID, "reservation cancelled"); err != nil {
		slog.Error("Failed to void payment for cancelled appointment", "appointment_id", appointmentID, "error", err)
	}

	s.publishCancelled(models.KindAppointment, appointmentID, "cancelled by customer")
	return nil
}

// GetAppointment returns one appointment.
func (s *BookingService) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, apperrors.ErrReservationNotFound
	}
	return appt, nil
}

// CreateBusiness registers a business with its booking bounds. Zero
// bounds fall back to sensible defaults rather than a business nobody
// can book.
func (s *BookingService) CreateBusiness(ctx context.Context, req *models.CreateBusinessRequest) (*models.Business, error) {
	business := &models.Business{
		Name:           req.Name,
		LeadTimeMin:    req.LeadTimeMin,
		HorizonDays:    req.HorizonDays,
		OpenMinute:     req.OpenMinute,
		CloseMinute:    req.CloseMinute,
		PayeeAccountID: req.PayeeAccountID,
	}
	if business.HorizonDays <= 0 {
		business.HorizonDays = 90
	}
	if business.CloseMinute <= 0 {
		business.CloseMinute = 1440
	}
	if business.CloseMinute <= business.OpenMinute || business.CloseMinute > 1440 {
		return nil, apperrors.ErrInvalidWindow
	}

	if err := s.businesses.Create(ctx, business); err != nil {
		return nil, err
	}
	return business, nil
}

// GetBusiness returns one business.
func (s *BookingService) GetBusiness(ctx context.Context, id int64) (*models.Business, error) {
	business, err := s.businesses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, apperrors.ErrBusinessNotFound
	}
	return business, nil
}

// CreateEvent registers a new finite-capacity event.
func (s *BookingService) CreateEvent(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	business, err := s.businesses.GetByID(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, apperrors.ErrBusinessNotFound
	}

	if req.ServiceID != nil {
		if _, err := s.ResolveService(ctx, *req.ServiceID); err != nil {
			return nil, err
		}
	}

	event := &models.Event{
		BusinessID:  req.BusinessID,
		Title:       req.Title,
		Description: req.Description,
		ServiceID:   req.ServiceID,
		StartsAt:    req.StartsAt.UTC(),
		Capacity:    req.Capacity,
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	return event, nil
}

// GetEvent returns one event.
func (s *BookingService) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}
	return event, nil
}

// ListEvents returns a page of events.
func (s *BookingService) ListEvents(ctx context.Context, page, pageSize int) ([]models.Event, error) {
	return s.events.List(ctx, page, pageSize)
}

// Availability lists the free windows of one business for one service on
// one calendar day. The listing is advisory: the atomic reserve remains
// the only admission decision.
func (s *BookingService) Availability(ctx context.Context, businessID int64, serviceID, date string) (*models.AvailabilityResponse, error) {
	svc, err := s.ResolveService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	business, err := s.businesses.GetByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, apperrors.ErrBusinessNotFound
	}

	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return nil, apperrors.ErrInvalidWindow.WithCause(err)
	}

	dayOpen := day.Add(time.Duration(business.OpenMinute) * time.Minute)
	dayClose := day.Add(time.Duration(business.CloseMinute) * time.Minute)
	duration := time.Duration(svc.DurationMinutes) * time.Minute

	resp := &models.AvailabilityResponse{
		BusinessID: businessID,
		ServiceID:  serviceID,
		Date:       date,
		Slots:      []models.AvailabilitySlot{},
	}

	now := s.now().UTC()
	earliest := now.Add(time.Duration(business.LeadTimeMin) * time.Minute)
	horizon := now.AddDate(0, 0, business.HorizonDays)
	if dayOpen.After(horizon) || !dayClose.After(earliest) {
		return resp, nil
	}

	busy, err := s.appointments.ListLiveBetween(ctx, businessID, dayOpen, dayClose)
	if err != nil {
		return nil, err
	}

	for start := dayOpen; !start.Add(duration).After(dayClose); start = start.Add(duration) {
		end := start.Add(duration)
		if start.Before(earliest) {
			continue
		}
		if overlapsAny(busy, start, end) {
			continue
		}
		resp.Slots = append(resp.Slots, models.AvailabilitySlot{Start: start, End: end})
	}

	return resp, nil
}

// windowBookable enforces the per-business booking bounds: lead time,
// horizon, opening hours, and that the window fits inside one day.
func (s *BookingService) windowBookable(business *models.Business, start, end time.Time) bool {
	if !start.Before(end) {
		return false
	}

	now := s.now().UTC()
	if start.Before(now.Add(time.Duration(business.LeadTimeMin) * time.Minute)) {
		return false
	}
	if start.After(now.AddDate(0, 0, business.HorizonDays)) {
		return false
	}

	day := start.Truncate(24 * time.Hour)
	dayOpen := day.Add(time.Duration(business.OpenMinute) * time.Minute)
	dayClose := day.Add(time.Duration(business.CloseMinute) * time.Minute)

	return !start.Before(dayOpen) && !end.After(dayClose)
}

// overlapsAny reports half-open interval intersection against a sorted
// list of live appointments.
func overlapsAny(busy []models.Appointment, start, end time.Time) bool {
	for _, appt := range busy {
		if appt.StartsAt.Before(end) && appt.EndsAt.After(start) {
			return true
		}
	}
	return false
}

func normalizeMethod(method string) (string, error) {
	switch method {
	case "", models.MethodGateway:
		return models.MethodGateway, nil
	case models.MethodCash, models.MethodBankTransfer, models.MethodBit:
		return method, nil
	}
	return "", apperrors.ErrInvalidMethod
}

func (s *BookingService) publishConfirmed(kind, reservationID string, businessID int64, customer models.CustomerInfo, startsAt time.Time) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(models.EventReservationConfirmed, models.ReservationConfirmedEvent{
		Kind:          kind,
		ReservationID: reservationID,
		BusinessID:    businessID,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		CustomerPhone: customer.Phone,
		StartsAt:      startsAt,
		Timestamp:     s.now(),
	})
	if err != nil {
		slog.Error("Failed to publish reservation confirmation", "kind", kind, "reservation_id", reservationID, "error", err)
	}
}

func (s *BookingService) publishCancelled(kind, reservationID, reason string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(models.EventReservationCancelled, models.ReservationCancelledEvent{
		Kind:          kind,
		ReservationID: reservationID,
		Reason:        reason,
		Timestamp:     s.now(),
	})
	if err != nil {
		slog.Error("Failed to publish reservation cancellation", "kind", kind, "reservation_id", reservationID, "error", err)
	}
}

func (s *BookingService) countBooking(kind, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.BookingOutcomes.WithLabelValues(kind, outcome).Inc()
}
