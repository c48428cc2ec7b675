package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed wraps every decode failure.
var ErrMalformed = errors.New("malformed event")

// Envelope is the JSON frame exchanged with clients: {"event": ..., "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type roomRef struct {
	RoomCode *string `json:"roomCode"`
}

type moveData struct {
	RoomCode *string        `json:"roomCode"`
	Row      json.RawMessage `json:"row"`
	Text     json.RawMessage `json:"text"`
	Status   json.RawMessage `json:"status"`
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// DecodeInbound parses a client envelope.
//
// joinRoom and leaveRoom accept either a bare string or {"roomCode": ...};
// the other room events take an object. A missing or empty room code is
// malformed for every kind except createRoom.
//
// Postcondition: Returns a valid Inbound or an error wrapping ErrMalformed.
func DecodeInbound(frame []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Inbound{}, malformed("invalid envelope: %v", err)
	}
	kind, ok := ParseEventKind(env.Event)
	if !ok {
		return Inbound{}, malformed("unknown event %q", env.Event)
	}
	in := Inbound{Kind: kind}

	switch kind {
	case EventCreateRoom:
		return in, nil
	case EventJoinRoom, EventLeaveRoom:
		code, err := decodeRoomCode(env.Data, true)
		if err != nil {
			return Inbound{}, err
		}
		in.RoomCode = code
	case EventPlayerReady, EventPlayerWin:
		code, err := decodeRoomCode(env.Data, false)
		if err != nil {
			return Inbound{}, err
		}
		in.RoomCode = code
	case EventPlayerMove:
		var d moveData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Inbound{}, malformed("playerMove data: %v", err)
		}
		if d.RoomCode == nil || *d.RoomCode == "" {
			return Inbound{}, malformed("playerMove requires roomCode")
		}
		in.RoomCode = *d.RoomCode
		in.Row, in.Text, in.Status = d.Row, d.Text, d.Status
	}
	return in, nil
}

func decodeRoomCode(data json.RawMessage, allowBare bool) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", malformed("missing roomCode")
	}
	if allowBare && data[0] == '"' {
		var code string
		if err := json.Unmarshal(data, &code); err != nil {
			return "", malformed("roomCode: %v", err)
		}
		if code == "" {
			return "", malformed("missing roomCode")
		}
		return code, nil
	}
	var ref roomRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return "", malformed("roomCode: %v", err)
	}
	if ref.RoomCode == nil || *ref.RoomCode == "" {
		return "", malformed("missing roomCode")
	}
	return *ref.RoomCode, nil
}

// EncodeOutbound renders a server event as a JSON envelope.
func EncodeOutbound(out Outbound) ([]byte, error) {
	data, err := json.Marshal(out.Payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", out.Name, err)
	}
	frame, err := json.Marshal(Envelope{Event: out.Name, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", out.Name, err)
	}
	return frame, nil
}

// EncodeInbound renders a client event as a JSON envelope. Client tooling and
// tests use it to build frames.
func EncodeInbound(in Inbound) ([]byte, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("encoding inbound: invalid kind %d", in.Kind)
	}
	var data any
	switch in.Kind {
	case EventCreateRoom:
	case EventPlayerMove:
		data = moveData{RoomCode: &in.RoomCode, Row: in.Row, Text: in.Text, Status: in.Status}
	default:
		data = roomRef{RoomCode: &in.RoomCode}
	}
	env := struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: in.Kind.String(), Data: data}
	return json.Marshal(env)
}

// MalformedMessage renders a decode error as the text sent to the client.
func MalformedMessage(err error) string {
	detail := strings.TrimPrefix(err.Error(), ErrMalformed.Error())
	detail = strings.TrimPrefix(detail, ": ")
	if detail == "" {
		return "Malformed event"
	}
	return "Malformed event: " + detail
}
