package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/parkhub/parking-service/internal/protocol"
	"github.com/parkhub/parking-service/internal/service"
	"github.com/parkhub/parking-service/internal/session"
	"go.uber.org/zap"
)

// Dispatcher routes one decoded request to one response envelope. It owns the
// tag switch, the session bookkeeping and the sentinel-to-text error mapping;
// transports stay protocol-agnostic byte movers.
type Dispatcher struct {
	users        service.UserService
	parking      service.ParkingService
	reservations service.ReservationService
	reports      service.ReportService
	sessions     *session.Registry
	timeout      time.Duration
	logger       *zap.Logger
}

func New(
	users service.UserService,
	parking service.ParkingService,
	reservations service.ReservationService,
	reports service.ReportService,
	sessions *session.Registry,
	timeout time.Duration,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		users:        users,
		parking:      parking,
		reservations: reservations,
		reports:      reports,
		sessions:     sessions,
		timeout:      timeout,
		logger:       logger,
	}
}

func (d *Dispatcher) OnConnect(connID string) {
	d.sessions.OnConnect(connID)
	d.logger.Info("client connected", zap.String("conn_id", connID))
}

// OnDisconnect drops the session and logs the user out when the connection
// was authenticated, so a dropped socket never leaves a username locked.
func (d *Dispatcher) OnDisconnect(connID string) {
	sess, ok := d.sessions.OnDisconnect(connID)
	if !ok {
		return
	}
	if sess.Authenticated() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.users.Logout(ctx, sess.Username); err != nil {
			d.logger.Warn("logout on disconnect failed",
				zap.String("username", sess.Username), zap.Error(err))
		}
	}
	d.logger.Info("client disconnected", zap.String("conn_id", connID))
}

// Handle processes a single request. It never panics and never returns more
// or less than one envelope; anything unexpected becomes an ERROR payload.
func (d *Dispatcher) Handle(connID string, req protocol.Envelope) protocol.Envelope {
	d.sessions.Touch(connID)

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	switch req.Type {
	case protocol.TypeSubscriberLogin:
		return d.subscriberLogin(ctx, connID, req)
	case protocol.TypeManagerLogin:
		return d.managerLogin(ctx, connID, req)
	case protocol.TypeRegisterSubscriber:
		return d.registerSubscriber(ctx, req)
	case protocol.TypeCheckAvailability:
		return d.checkAvailability(ctx)
	case protocol.TypeEnterParking:
		return d.enterParking(ctx, req)
	case protocol.TypeExitParking:
		return d.exitParking(ctx, req)
	case protocol.TypeExtendParking:
		return d.extendParking(ctx, req)
	case protocol.TypeGetActiveParkings:
		return d.activeParkings(ctx)
	case protocol.TypeReserveParking:
		return d.reserveParking(ctx, req)
	case protocol.TypeCancelReservation:
		return d.cancelReservation(ctx, req)
	case protocol.TypeActivateReservation:
		return d.activateReservation(ctx, req)
	case protocol.TypeRequestLostCode:
		return d.lostCode(ctx, req)
	case protocol.TypeUpdateSubscriberInfo:
		return d.updateSubscriber(ctx, req)
	case protocol.TypeRequestSubscriberData:
		return d.subscriberData(ctx, req, protocol.TypeSubscriberDataResponse)
	case protocol.TypeGetSubscriberByName:
		return d.subscriberData(ctx, req, protocol.TypeShowSubscriber)
	case protocol.TypeGetAllSubscribers:
		return d.allSubscribers(ctx)
	case protocol.TypeGetParkingHistory:
		return d.parkingHistory(ctx, req)
	case protocol.TypeManagerGetReports:
		return d.report(ctx, req)
	case protocol.TypeHeartbeat:
		return protocol.Envelope{Type: protocol.TypeHeartbeat}
	default:
		return protocol.Error(protocol.TypeError, "Unknown request type")
	}
}

// --- Authentication ---

func (d *Dispatcher) subscriberLogin(ctx context.Context, connID string, req protocol.Envelope) protocol.Envelope {
	fields, err := protocol.Fields(req.Data, 2)
	if err != nil {
		return d.fail(protocol.TypeSubscriberLoginResponse, err)
	}

	sub, err := d.users.Login(ctx, fields[0], fields[1])
	if err != nil {
		// Empty payload signals an authentication failure to the client,
		// distinct from a textual error.
		if errors.Is(err, service.ErrInvalidCredentials) {
			return protocol.Envelope{Type: protocol.TypeSubscriberLoginResponse}
		}
		return d.fail(protocol.TypeSubscriberLoginResponse, err)
	}

	d.sessions.Bind(connID, sub.Username, sub.Role)
	return protocol.Envelope{Type: protocol.TypeSubscriberLoginResponse, Subscriber: sub}
}

func (d *Dispatcher) managerLogin(ctx context.Context, connID string, req protocol.Envelope) protocol.Envelope {
	fields, err := protocol.Fields(req.Data, 2)
	if err != nil {
		return d.fail(protocol.TypeManagerLoginResponse, err)
	}

	role, err := d.users.ManagerLogin(ctx, fields[0], fields[1])
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return protocol.Envelope{Type: protocol.TypeManagerLoginResponse}
		}
		return d.fail(protocol.TypeManagerLoginResponse, err)
	}

	d.sessions.Bind(connID, fields[0], role)
	return protocol.Success(protocol.TypeManagerLoginResponse, string(role))
}

func (d *Dispatcher) registerSubscriber(ctx context.Context, req protocol.Envelope) protocol.Envelope {
	fields, err := protocol.Fields(req.Data, 6)
	if err != nil {
		return d.fail(protocol.TypeRegistrationResponse, err)
	}

	code, err := d.users.Register(ctx, fields[1], fields[2], fields[3], fields[4], fields[5])
	if err != nil {
		return d.fail(protocol.TypeRegistrationResponse, err)
	}
	return protocol.Success(protocol.TypeRegistrationResponse, code)
}

// --- Parking ---

func (d *Dispatcher) checkAvailability(ctx context.Context) protocol.Envelope {
	free, err := d.parking.CheckAvailability(ctx)
	if err != nil {
		return d.fail(protocol.TypeParkingAvailabilityResponse, err)
	}
	return protocol.Success(protocol.TypeParkingAvailabilityResponse, strconv.FormatInt(free, 10))
}

func (d *Dispatcher) enterParking(ctx context.Context, req protocol.Envelope) protocol.Envelope {
	fields, err := protocol.Fields(req.Data, 1)
	if err != nil {
		return d.fail(protocol.TypeEnterParkingResponse, err)
	}

	order, err := d.parking.Enter(ctx, fields[0])
	if err != nil {
		return d.fail(protocol.TypeEnterParkingResponse, err)
	}
	return protocol.Success(protocol.TypeEnterParkingResponse,
		fmt.Sprintf("%s,%d", order.Code, order.SpotID))
}

func (d *Dispatcher) exitParking(ctx context.Context, req protocol.Envelope) protocol.Envelope {
	fields, err := protocol.Fields(req.Data, 1)
	if err != nil {
		return d.fail(protocol.TypeExitParkingResponse, err)
	}

	cost, err := d.parking.Exit(ctx, fields[0])
	if err != nil {
		return d.fail(protocol.TypeExitParkingResponse, err)
	}
	return protocol.Success(protocol.TypeExitParkingResponse, fmt.Sprintf("%.2f", cost))
}

func (d *Dispatcher) extendParking(ctx context.Context, req protocol.Envelope) protocol.Envelope {
	fields, err := protocol.Fields(req.Data, 2)
	if err != nil {
		return d.fail(protocol.TypeExtendParkingResponse, err)
	}

	hours, err := strconv.Atoi(fields[1])
	if err != nil {
		return d.fail(protocol.TypeExtendParkingResponse, service.ErrInvalidHours)
	}

	if err := d.parking.Extend(ctx, fields[0], hours); err != nil {
		return d.fail(protocol.TypeExtendParkingResponse, err)
	}
	return protocol.Success(protocol.TypeExtendParkingResponse, "Parking time extended")
}

func (d *Dispatcher) activeParkings(ctx context.Context) protocol.Envelope {
	orders, err := d.parking.ActiveOrders(ctx)
	if err != nil {
		return d.fail(protocol.TypeActiveParkingsResponse, err)
	}
	return protocol.Envelope{Type: protocol.TypeActiveParkingsResponse, Orders: orders}
}

// --- Reservations ---

func (d *Dispatcher) reserveParking(ctx context.Context, req protocol.Envelope) protocol.Envelope {
	fields, err := protocol.Fields(req.Data, 2)
	if err != nil {
		return d.fail(protocol.TypeReservationResponse, err)
	}

	code, err := d.reservations.Reserve(ctx, fields[0], fields[1])
	if err != nil {
		return d.fail(protocol.TypeReservationResponse, err)
	}
	return protocol.Success(protocol.TypeReservationResponse, code)
}

func (d *Dispatcher) cancelReservation(ctx context.Context, req protocol.Envelope) protocol.Envelope {
	fields, err := protocol.Fields(req.Data, 2)
	if err != nil {
		return d.fail(protocol.TypeCancellationResponse, err)
	}

	if err := d.reservations.Cancel(ctx, fields[0], fields[1]); err != nil {
		return d.fail(protocol.TypeCancellationResponse, err)
	}
	return protocol.Success(protocol.TypeCancellationResponse, "Reservation cancelled")
}

func (d *Dispatcher) activateReservation(ctx context.Context, req protocol.Envelope) protocol.Envelope {
	fields, err := protocol.Fields(req.Data, 2)
	if err != nil {
		return d.fail(protocol.TypeActivationResponse, err)
	}

	order, err := d.reservations.Activate(ctx, fields[0], fields[1])
	if err != nil {
		return d.fail(protocol.TypeActivationResponse, err)
	}
	return protocol.Success(protocol.TypeActivationResponse,
		fmt.Sprintf("%s,%d", order.Code, order.SpotID))
}

// --- Subscriber data ---

func (d *Dispatcher) lostCode(ctx context.Context, req protocol.Envelope) protocol.Envelope {
	fields, err := protocol.Fields(req.Data, 1)
	if err != nil {
		return d.fail(protocol.TypeLostCodeResponse, err)
	}

	if err := d.users.LostCode(ctx, fields[0]); err != nil {
		return d.fail(protocol.TypeLostCodeResponse, err)
	}
	return protocol.Success(protocol.TypeLostCodeResponse, "Code sent to registered email")
}

func (d *Dispatcher) updateSubscriber(ctx context.Context, req protocol.Envelope) protocol.Envelope {
	if req.Subscriber == nil {
		return d.fail(protocol.TypeUpdateSubscriberResponse, protocol.ErrMalformedPayload)
	}

	if err := d.users.UpdateSubscriber(ctx, req.Subscriber); err != nil {
		return d.fail(protocol.TypeUpdateSubscriberResponse, err)
	}
	return protocol.Success(protocol.TypeUpdateSubscriberResponse, "Subscriber updated")
}

func (d *Dispatcher) subscriberData(ctx context.Context, req protocol.Envelope, respType protocol.MessageType) protocol.Envelope {
	fields, err := protocol.Fields(req.Data, 1)
	if err != nil {
		return d.fail(respType, err)
	}

	sub, err := d.users.GetSubscriber(ctx, fields[0])
	if err != nil {
		return d.fail(respType, err)
	}
	return protocol.Envelope{Type: respType, Subscriber: sub}
}

func (d *Dispatcher) allSubscribers(ctx context.Context) protocol.Envelope {
	subs, err := d.users.ListSubscribers(ctx)
	if err != nil {
		return d.fail(protocol.TypeShowAllSubscribers, err)
	}
	return protocol.Envelope{Type: protocol.TypeShowAllSubscribers, Subscribers: subs}
}

// --- Reports ---

func (d *Dispatcher) parkingHistory(ctx context.Context, req protocol.Envelope) protocol.Envelope {
	fields, err := protocol.Fields(req.Data, 1)
	if err != nil {
		return d.fail(protocol.TypeParkingHistoryResponse, err)
	}

	orders, err := d.reports.ParkingHistory(ctx, fields[0])
	if err != nil {
		return d.fail(protocol.TypeParkingHistoryResponse, err)
	}
	return protocol.Envelope{Type: protocol.TypeParkingHistoryResponse, Orders: orders}
}

func (d *Dispatcher) report(ctx context.Context, req protocol.Envelope) protocol.Envelope {
	fields, err := protocol.Fields(req.Data, 1)
	if err != nil {
		return d.fail(protocol.TypeManagerSendReports, err)
	}

	report, err := d.reports.Generate(ctx, fields[0])
	if err != nil {
		return d.fail(protocol.TypeManagerSendReports, err)
	}
	return protocol.Envelope{Type: protocol.TypeManagerSendReports, Report: report}
}

// --- Error mapping ---

var sentinelTexts = []struct {
	err  error
	text string
}{
	{service.ErrAlreadyLoggedIn, "User already logged in"},
	{service.ErrUsernameExists, "Username already exists"},
	{service.ErrUserNotFound, "User not found"},
	{service.ErrAlreadyParked, "User already has an active parking session"},
	{service.ErrNoSpotAvailable, "No available parking spots"},
	{service.ErrInvalidCode, "Invalid parking code"},
	{service.ErrInvalidHours, "Invalid extension hours"},
	{service.ErrInvalidDateFormat, "Invalid date format, use yyyy-MM-dd HH:mm"},
	{service.ErrPastDate, "Reservation must be for a future date/time"},
	{service.ErrAlreadyReserved, "User already has an active reservation"},
	{service.ErrReservationNotFound, "Reservation not found"},
	{service.ErrNotOwner, "Reservation belongs to another user"},
	{service.ErrOutsideWindow, "Outside the reservation activation window"},
	{service.ErrUnknownReportType, "Unknown report type"},
}

// fail maps known sentinels to stable client-facing texts; anything else is a
// server-side problem that gets logged and answered generically.
func (d *Dispatcher) fail(respType protocol.MessageType, err error) protocol.Envelope {
	for _, s := range sentinelTexts {
		if errors.Is(err, s.err) {
			return protocol.Error(respType, s.text)
		}
	}
	if errors.Is(err, protocol.ErrMalformedPayload) {
		return protocol.Error(respType, "Malformed request payload")
	}

	d.logger.Error("request failed", zap.String("response_type", string(respType)), zap.Error(err))
	return protocol.Error(respType, "Service temporarily unavailable")
}
