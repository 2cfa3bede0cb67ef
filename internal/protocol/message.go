package protocol

import (
	"strings"

	"github.com/parkhub/parking-service/internal/models"
)

// MessageType tags every envelope on the wire. Request tags pair with a
// fixed *_RESPONSE tag; ERROR is reserved for requests the server could not
// route at all.
type MessageType string

const (
	// Authentication
	TypeSubscriberLogin         MessageType = "SUBSCRIBER_LOGIN"
	TypeSubscriberLoginResponse MessageType = "SUBSCRIBER_LOGIN_RESPONSE"
	TypeManagerLogin            MessageType = "MANAGER_LOGIN"
	TypeManagerLoginResponse    MessageType = "MANAGER_LOGIN_RESPONSE"
	TypeRegisterSubscriber      MessageType = "REGISTER_SUBSCRIBER"
	TypeRegistrationResponse    MessageType = "REGISTRATION_RESPONSE"

	// Parking operations
	TypeCheckAvailability           MessageType = "CHECK_PARKING_AVAILABILITY"
	TypeParkingAvailabilityResponse MessageType = "PARKING_AVAILABILITY_RESPONSE"
	TypeEnterParking                MessageType = "ENTER_PARKING"
	TypeEnterParkingResponse        MessageType = "ENTER_PARKING_RESPONSE"
	TypeExitParking                 MessageType = "EXIT_PARKING"
	TypeExitParkingResponse         MessageType = "EXIT_PARKING_RESPONSE"
	TypeExtendParking               MessageType = "EXTEND_PARKING"
	TypeExtendParkingResponse       MessageType = "EXTEND_PARKING_RESPONSE"
	TypeGetActiveParkings           MessageType = "GET_ACTIVE_PARKINGS"
	TypeActiveParkingsResponse      MessageType = "ACTIVE_PARKINGS_RESPONSE"

	// Reservation operations
	TypeReserveParking       MessageType = "RESERVE_PARKING"
	TypeReservationResponse  MessageType = "RESERVATION_RESPONSE"
	TypeCancelReservation    MessageType = "CANCEL_RESERVATION"
	TypeCancellationResponse MessageType = "CANCELLATION_RESPONSE"
	TypeActivateReservation  MessageType = "ACTIVATE_RESERVATION"
	TypeActivationResponse   MessageType = "ACTIVATION_RESPONSE"

	// User operations
	TypeRequestLostCode          MessageType = "REQUEST_LOST_CODE"
	TypeLostCodeResponse         MessageType = "LOST_CODE_RESPONSE"
	TypeUpdateSubscriberInfo     MessageType = "UPDATE_SUBSCRIBER_INFO"
	TypeUpdateSubscriberResponse MessageType = "UPDATE_SUBSCRIBER_RESPONSE"
	TypeRequestSubscriberData    MessageType = "REQUEST_SUBSCRIBER_DATA"
	TypeSubscriberDataResponse   MessageType = "SUBSCRIBER_DATA_RESPONSE"

	// Report operations
	TypeGetParkingHistory      MessageType = "GET_PARKING_HISTORY"
	TypeParkingHistoryResponse MessageType = "PARKING_HISTORY_RESPONSE"
	TypeManagerGetReports      MessageType = "MANAGER_GET_REPORTS"
	TypeManagerSendReports     MessageType = "MANAGER_SEND_REPORTS"

	// Admin operations
	TypeGetAllSubscribers   MessageType = "GET_ALL_SUBSCRIBERS"
	TypeShowAllSubscribers  MessageType = "SHOW_ALL_SUBSCRIBERS"
	TypeGetSubscriberByName MessageType = "GET_SUBSCRIBER_BY_NAME"
	TypeShowSubscriber      MessageType = "SHOW_SUBSCRIBER_DETAILS"

	// System
	TypeError     MessageType = "ERROR"
	TypeHeartbeat MessageType = "HEARTBEAT"
)

var knownTypes = map[MessageType]struct{}{
	TypeSubscriberLogin:             {},
	TypeSubscriberLoginResponse:     {},
	TypeManagerLogin:                {},
	TypeManagerLoginResponse:        {},
	TypeRegisterSubscriber:          {},
	TypeRegistrationResponse:        {},
	TypeCheckAvailability:           {},
	TypeParkingAvailabilityResponse: {},
	TypeEnterParking:                {},
	TypeEnterParkingResponse:        {},
	TypeExitParking:                 {},
	TypeExitParkingResponse:         {},
	TypeExtendParking:               {},
	TypeExtendParkingResponse:       {},
	TypeGetActiveParkings:           {},
	TypeActiveParkingsResponse:      {},
	TypeReserveParking:              {},
	TypeReservationResponse:         {},
	TypeCancelReservation:           {},
	TypeCancellationResponse:        {},
	TypeActivateReservation:         {},
	TypeActivationResponse:          {},
	TypeRequestLostCode:             {},
	TypeLostCodeResponse:            {},
	TypeUpdateSubscriberInfo:        {},
	TypeUpdateSubscriberResponse:    {},
	TypeRequestSubscriberData:       {},
	TypeSubscriberDataResponse:      {},
	TypeGetParkingHistory:           {},
	TypeParkingHistoryResponse:      {},
	TypeManagerGetReports:           {},
	TypeManagerSendReports:          {},
	TypeGetAllSubscribers:           {},
	TypeShowAllSubscribers:          {},
	TypeGetSubscriberByName:         {},
	TypeShowSubscriber:              {},
	TypeError:                       {},
	TypeHeartbeat:                   {},
}

func (t MessageType) Known() bool {
	_, ok := knownTypes[t]
	return ok
}

// Envelope is the wire message. The payload is a closed union: exactly one of
// Data, Subscriber, Subscribers, Orders or Report is set; an empty payload on
// a login response signals authentication failure.
type Envelope struct {
	Type        MessageType           `json:"type"`
	Data        string                `json:"data,omitempty"`
	Subscriber  *models.Subscriber    `json:"subscriber,omitempty"`
	Subscribers []models.Subscriber   `json:"subscribers,omitempty"`
	Orders      []models.ParkingOrder `json:"orders,omitempty"`
	Report      map[string]any        `json:"report,omitempty"`
}

func Text(t MessageType, data string) Envelope {
	return Envelope{Type: t, Data: data}
}

func Success(t MessageType, text string) Envelope {
	return Envelope{Type: t, Data: "SUCCESS: " + text}
}

func Error(t MessageType, text string) Envelope {
	return Envelope{Type: t, Data: "ERROR: " + text}
}

func (e Envelope) IsSuccess() bool {
	return strings.HasPrefix(e.Data, "SUCCESS:")
}

func (e Envelope) IsError() bool {
	return strings.HasPrefix(e.Data, "ERROR:")
}
