package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrUnknownType = errors.New("unknown event type")
	ErrEmptyType   = errors.New("missing event type")
)

// Type tags a notification message.
type Type string

// Server → client event types.
const (
	TypeConnectionEstablished Type = "connection_established"
	TypeTaskAssigned          Type = "task_assigned"
	TypeActivityApproved      Type = "activity_approved"
	TypeActivityRejected      Type = "activity_rejected"
	TypeUrgentAlert           Type = "urgent_alert"
	TypeWeatherAlert          Type = "weather_alert"
	TypeEquipmentAlert        Type = "equipment_alert"
	TypeActivityUpdate        Type = "activity_update"
	TypeLocationUpdate        Type = "location_update"
	TypeExpenseCreated        Type = "expense_created"
	TypeRevenueCreated        Type = "revenue_created"
	TypeExpenseUpdated        Type = "expense_updated"
	TypeRevenueUpdated        Type = "revenue_updated"
	TypeFinancialRefresh      Type = "financial_data_refresh"
	TypePong                  Type = "pong"
)

// Client → server event types. activity_update and location_update are
// shared: the server re-broadcasts them to the sender's farm.
const (
	TypeAcknowledgeTask Type = "acknowledge_task"
	TypePing            Type = "ping"
)

// Envelope is the on-the-wire frame. Timestamp is set on server-originated
// frames only (milliseconds since epoch).
type Envelope struct {
	Type      Type            `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// ConnectionEstablished confirms a successful handshake.
type ConnectionEstablished struct {
	UserID int64 `json:"userId"`
	FarmID int64 `json:"farmId"`
}

// TaskAssigned notifies a worker of a new task.
type TaskAssigned struct {
	TaskID   int64  `json:"taskId"`
	Title    string `json:"title"`
	Priority string `json:"priority,omitempty"`
	DueDate  string `json:"dueDate,omitempty"`
}

// ActivityApproved notifies the activity owner of approval.
type ActivityApproved struct {
	ActivityID int64 `json:"activityId"`
	ApproverID int64 `json:"approverId,omitempty"`
}

// ActivityRejected notifies the activity owner of rejection.
type ActivityRejected struct {
	ActivityID int64  `json:"activityId"`
	Reason     string `json:"reason,omitempty"`
}

// UrgentAlert is a farm-wide emergency broadcast.
type UrgentAlert struct {
	Message string `json:"message"`
}

// WeatherAlert is a farm-wide weather warning.
type WeatherAlert struct {
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
}

// EquipmentAlert reports an equipment fault to the farm.
type EquipmentAlert struct {
	EquipmentID int64  `json:"equipmentId"`
	Message     string `json:"message"`
}

// ActivityUpdate carries an activity state change. UserID is filled in by
// the server when re-broadcasting an inbound update to the sender's farm.
type ActivityUpdate struct {
	ActivityID int64  `json:"activityId"`
	Status     string `json:"status"`
	UserID     int64  `json:"userId,omitempty"`
}

// LocationUpdate carries a worker position. UserID is filled in by the
// server when re-broadcasting.
type LocationUpdate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	UserID    int64   `json:"userId,omitempty"`
}

// ExpenseChange describes a created or updated expense record.
type ExpenseChange struct {
	ExpenseID int64   `json:"expenseId"`
	Amount    float64 `json:"amount"`
	Category  string  `json:"category,omitempty"`
}

// RevenueChange describes a created or updated revenue record.
type RevenueChange struct {
	RevenueID int64   `json:"revenueId"`
	Amount    float64 `json:"amount"`
	Source    string  `json:"source,omitempty"`
}

// FinancialRefresh tells clients to re-fetch financial summaries.
type FinancialRefresh struct {
	FarmID int64 `json:"farmId"`
}

// AcknowledgeTask is the inbound acknowledgment for an assigned task.
type AcknowledgeTask struct {
	TaskID int64 `json:"taskId"`
}

// Pong answers an application-level ping. Empty payload.
type Pong struct{}

// Ping is the application-level liveness probe. Empty payload.
type Ping struct{}

// New builds a server-originated envelope, stamping the current time in
// milliseconds.
func New(t Type, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Envelope{
		Type:      t,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Parse decodes a raw frame into an envelope. The payload is left raw;
// use Decode for the typed payload.
func Parse(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("parse frame: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, ErrEmptyType
	}
	return env, nil
}

// Encode serializes an envelope for the wire.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode returns the typed payload for the envelope's tag. Unrecognized
// tags return ErrUnknownType so callers can drop the frame.
func Decode(env Envelope) (any, error) {
	var payload any

	switch env.Type {
	case TypeConnectionEstablished:
		payload = &ConnectionEstablished{}
	case TypeTaskAssigned:
		payload = &TaskAssigned{}
	case TypeActivityApproved:
		payload = &ActivityApproved{}
	case TypeActivityRejected:
		payload = &ActivityRejected{}
	case TypeUrgentAlert:
		payload = &UrgentAlert{}
	case TypeWeatherAlert:
		payload = &WeatherAlert{}
	case TypeEquipmentAlert:
		payload = &EquipmentAlert{}
	case TypeActivityUpdate:
		payload = &ActivityUpdate{}
	case TypeLocationUpdate:
		payload = &LocationUpdate{}
	case TypeExpenseCreated, TypeExpenseUpdated:
		payload = &ExpenseChange{}
	case TypeRevenueCreated, TypeRevenueUpdated:
		payload = &RevenueChange{}
	case TypeFinancialRefresh:
		payload = &FinancialRefresh{}
	case TypeAcknowledgeTask:
		payload = &AcknowledgeTask{}
	case TypePong:
		payload = &Pong{}
	case TypePing:
		payload = &Ping{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, payload); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	}
	return payload, nil
}
