package event

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewStampsTimestamp(t *testing.T) {
	before := time.Now().UnixMilli()
	env, err := New(TypeUrgentAlert, UrgentAlert{Message: "flood"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	after := time.Now().UnixMilli()

	if env.Type != TypeUrgentAlert {
		t.Errorf("Type = %q, want %q", env.Type, TypeUrgentAlert)
	}
	if env.Timestamp < before || env.Timestamp > after {
		t.Errorf("Timestamp = %d, want within [%d, %d]", env.Timestamp, before, after)
	}
}

func TestParseRejectsMissingType(t *testing.T) {
	_, err := Parse([]byte(`{"data":{"message":"hi"}}`))
	if !errors.Is(err, ErrEmptyType) {
		t.Errorf("err = %v, want ErrEmptyType", err)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"type":`))
	if err == nil {
		t.Error("expected error for malformed frame")
	}
}

func TestDecodeTypedPayloads(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, payload any)
	}{
		{
			name: "connection_established",
			raw:  `{"type":"connection_established","data":{"userId":42,"farmId":7}}`,
			check: func(t *testing.T, payload any) {
				p, ok := payload.(*ConnectionEstablished)
				if !ok {
					t.Fatalf("payload type = %T", payload)
				}
				if p.UserID != 42 || p.FarmID != 7 {
					t.Errorf("payload = %+v, want userId=42 farmId=7", p)
				}
			},
		},
		{
			name: "acknowledge_task",
			raw:  `{"type":"acknowledge_task","data":{"taskId":99}}`,
			check: func(t *testing.T, payload any) {
				p, ok := payload.(*AcknowledgeTask)
				if !ok {
					t.Fatalf("payload type = %T", payload)
				}
				if p.TaskID != 99 {
					t.Errorf("TaskID = %d, want 99", p.TaskID)
				}
			},
		},
		{
			name: "location_update",
			raw:  `{"type":"location_update","data":{"latitude":6.5,"longitude":3.4}}`,
			check: func(t *testing.T, payload any) {
				p, ok := payload.(*LocationUpdate)
				if !ok {
					t.Fatalf("payload type = %T", payload)
				}
				if p.Latitude != 6.5 || p.Longitude != 3.4 {
					t.Errorf("payload = %+v", p)
				}
			},
		},
		{
			name: "expense_updated shares ExpenseChange",
			raw:  `{"type":"expense_updated","data":{"expenseId":3,"amount":120.5}}`,
			check: func(t *testing.T, payload any) {
				p, ok := payload.(*ExpenseChange)
				if !ok {
					t.Fatalf("payload type = %T", payload)
				}
				if p.ExpenseID != 3 {
					t.Errorf("ExpenseID = %d, want 3", p.ExpenseID)
				}
			},
		},
		{
			name: "ping with no data",
			raw:  `{"type":"ping"}`,
			check: func(t *testing.T, payload any) {
				if _, ok := payload.(*Ping); !ok {
					t.Fatalf("payload type = %T", payload)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Parse([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			payload, err := Decode(env)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			tt.check(t, payload)
		})
	}
}

func TestDecodeUnknownType(t *testing.T) {
	env := Envelope{Type: "telepathy"}
	_, err := Decode(env)
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
}

func TestEncodeOmitsEmptyTimestamp(t *testing.T) {
	env := Envelope{Type: TypePing}
	data, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("round-trip failed: %v", err)
	}
	if _, present := m["timestamp"]; present {
		t.Error("client frame should not carry a timestamp")
	}
}
