package dispatch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ccbot/internal/constants"
	"ccbot/internal/telegram"
)

// Kind selects what the AI worker does with a request.
type Kind int

const (
	KindScan Kind = iota
	KindTest
)

func (k Kind) String() string {
	switch k {
	case KindScan:
		return "scan"
	case KindTest:
		return "test"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RequestType is the wire name of the kind.
func (k Kind) RequestType() string {
	if k == KindTest {
		return constants.RequestTypeTest
	}
	return constants.RequestTypeScan
}

// ParseRequestType maps a wire type back to a Kind.
func ParseRequestType(requestType string) (Kind, bool) {
	switch requestType {
	case constants.RequestTypeScan:
		return KindScan, true
	case constants.RequestTypeTest:
		return KindTest, true
	default:
		return 0, false
	}
}

// Request is the unit of work submitted to the Dispatcher. The payload is
// copied on construction and on every read, so a Request never changes after
// it is built.
type Request struct {
	id        string
	kind      Kind
	payload   map[string]interface{}
	createdAt time.Time
}

func NewRequest(kind Kind, payload map[string]interface{}, createdAt time.Time) *Request {
	return &Request{
		id:        uuid.New().String(),
		kind:      kind,
		payload:   copyMap(payload),
		createdAt: createdAt,
	}
}

// NewRequestFrom builds a Request from a typed payload such as ScanPayload or
// TestPayload.
func NewRequestFrom(kind Kind, payload interface{}, createdAt time.Time) (*Request, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
	}
	return NewRequest(kind, m, createdAt), nil
}

func (r *Request) ID() string           { return r.id }
func (r *Request) Kind() Kind           { return r.kind }
func (r *Request) CreatedAt() time.Time { return r.createdAt }

func (r *Request) Payload() map[string]interface{} {
	return copyMap(r.payload)
}

// Decode unmarshals the payload into v.
func (r *Request) Decode(v interface{}) error {
	raw, err := json.Marshal(r.payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// WireRequest is the JSON body exchanged with the AI worker.
type WireRequest struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Body encodes the request in its wire form. The data object carries the
// payload plus the submission timestamp in Unix milliseconds.
func (r *Request) Body() ([]byte, error) {
	data := copyMap(r.payload)
	if data == nil {
		data = make(map[string]interface{}, 1)
	}
	data["timestamp"] = r.createdAt.UnixMilli()

	return json.Marshal(WireRequest{
		Type: r.kind.RequestType(),
		Data: data,
	})
}

// ScanPayload asks the worker to moderate a group message.
type ScanPayload struct {
	Text           string            `json:"text"`
	Message        *telegram.Message `json:"msg"`
	ChatID         int64             `json:"chatId"`
	AdminIDs       []int64           `json:"adminIds,omitempty"`
	CustomPrompt   string            `json:"aiCustomPrompt,omitempty"`
	TestMode       bool              `json:"testMode"`
	Debug          bool              `json:"debug,omitempty"`
	DebugGroups    []int64           `json:"debug_groups,omitempty"`
	DebugAllGroups bool              `json:"debug_all_groups,omitempty"`
}

// TestPayload asks the worker to answer an /aitest command.
type TestPayload struct {
	TestContent           string            `json:"testContent"`
	Message               *telegram.Message `json:"msg"`
	ChatID                int64             `json:"chatId"`
	NotificationMessageID int64             `json:"notificationMsgId,omitempty"`
	TestMode              bool              `json:"testMode"`
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
