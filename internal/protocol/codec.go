package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownKind      = errors.New("unknown message kind")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type envelope struct {
	Type   Kind            `json:"type"`
	RoomID string          `json:"roomId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type outEnvelope struct {
	Type   Kind    `json:"type"`
	RoomID string  `json:"roomId,omitempty"`
	Data   Payload `json:"data"`
}

// Wire shapes. Pointers tell a missing field apart from a zero value.
type codeData struct {
	Code     *string `json:"code" validate:"required"`
	Language string  `json:"language" validate:"max=32"`
}

type presenceData struct {
	UserCount      *int     `json:"userCount" validate:"required,gte=0"`
	ConnectedUsers []string `json:"connectedUsers" validate:"required"`
	DisplayName    string   `json:"displayName"`
}

type roomStateData struct {
	Code           *string  `json:"code" validate:"required"`
	Language       string   `json:"language"`
	UserCount      *int     `json:"userCount" validate:"required,gte=0"`
	ConnectedUsers []string `json:"connectedUsers" validate:"required"`
}

// Encode renders p as a frame addressed to roomID.
func Encode(roomID string, p Payload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrMalformedMessage)
	}
	return json.Marshal(outEnvelope{Type: p.Kind(), RoomID: roomID, Data: p})
}

// Decode parses and validates one frame. Any structural problem is reported
// as ErrMalformedMessage; a well-formed envelope of a kind this package does
// not know is reported as ErrUnknownKind so callers can ignore it.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}

	msg := Message{Kind: env.Type, RoomID: env.RoomID}
	var err error
	switch env.Type {
	case KindCodeUpdate, KindCodeSync:
		var d codeData
		if err = decodeData(env.Data, &d); err != nil {
			break
		}
		if env.Type == KindCodeSync {
			msg.Payload = CodeSync{Code: *d.Code}
		} else {
			msg.Payload = CodeUpdate{Code: *d.Code, Language: d.Language}
		}
	case KindRoomState:
		var d roomStateData
		if err = decodeData(env.Data, &d); err != nil {
			break
		}
		msg.Payload = RoomState{
			Code:     *d.Code,
			Language: d.Language,
			Presence: Presence{UserCount: *d.UserCount, ConnectedUsers: d.ConnectedUsers},
		}
	case KindUserJoined, KindUserLeft:
		var d presenceData
		if err = decodeData(env.Data, &d); err != nil {
			break
		}
		p := Presence{UserCount: *d.UserCount, ConnectedUsers: d.ConnectedUsers}
		if env.Type == KindUserJoined {
			msg.Payload = UserJoined{Presence: p, DisplayName: d.DisplayName}
		} else {
			msg.Payload = UserLeft{Presence: p}
		}
	default:
		return msg, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
	if err != nil {
		return Message{}, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, env.Type, err)
	}
	return msg, nil
}

func decodeData(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errors.New("missing data")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}
