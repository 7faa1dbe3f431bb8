package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dtroode/kychat-server/internal/model"
)

// ErrMalformedEvent is returned for inbound frames that are not a JSON
// object, lack a recipient, or are content messages without a channel.
var ErrMalformedEvent = errors.New("malformed event")

// contentMessage is the outbound shape of a chat message. Only these fields
// are relayed; absent ones are sent as null.
type contentMessage struct {
	MessageID        json.RawMessage `json:"message_id"`
	ChannelID        json.RawMessage `json:"channel_id"`
	SenderID         string          `json:"sender_id"`
	RecipientID      string          `json:"recipient_id"`
	Type             json.RawMessage `json:"type"`
	SubType          json.RawMessage `json:"sub_type"`
	Message          json.RawMessage `json:"message"`
	MessageType      json.RawMessage `json:"message_type"`
	FileName         json.RawMessage `json:"file_name"`
	FileURL          json.RawMessage `json:"file_url"`
	Timestamp        json.RawMessage `json:"timestamp"`
	FileExp          json.RawMessage `json:"file_exp"`
	FileSize         json.RawMessage `json:"file_size"`
	RepliedMessageID json.RawMessage `json:"replied_message_id"`
}

// DecodeEvent parses one inbound frame from senderID. A truthy message_type
// marks a content message and a truthy event a control event. Any other
// frame is decoded as a content message, so it needs recipient_id and
// channel_id. sender_id is always overwritten with senderID.
func DecodeEvent(senderID string, data []byte) (model.Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return model.Message{}, fmt.Errorf("%w: not a json object", ErrMalformedEvent)
	}

	if !truthy(fields["message_type"]) && truthy(fields["event"]) {
		return decodeControl(senderID, fields)
	}
	return decodeContent(senderID, fields)
}

func decodeContent(senderID string, fields map[string]json.RawMessage) (model.Message, error) {
	recipientID, err := requiredString(fields, "recipient_id")
	if err != nil {
		return model.Message{}, err
	}
	channel, ok := fields["channel_id"]
	if !ok || isNull(channel) {
		return model.Message{}, fmt.Errorf("%w: channel_id is required", ErrMalformedEvent)
	}

	payload, err := json.Marshal(contentMessage{
		MessageID:        fields["message_id"],
		ChannelID:        channel,
		SenderID:         senderID,
		RecipientID:      recipientID,
		Type:             fields["type"],
		SubType:          fields["sub_type"],
		Message:          fields["message"],
		MessageType:      fields["message_type"],
		FileName:         fields["file_name"],
		FileURL:          fields["file_url"],
		Timestamp:        fields["timestamp"],
		FileExp:          fields["file_exp"],
		FileSize:         fields["file_size"],
		RepliedMessageID: fields["replied_message_id"],
	})
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to encode content message: %w", err)
	}

	return model.Message{
		Kind:        model.KindContent,
		SenderID:    senderID,
		RecipientID: recipientID,
		ChannelID:   rawText(channel),
		Payload:     payload,
	}, nil
}

func decodeControl(senderID string, fields map[string]json.RawMessage) (model.Message, error) {
	recipientID, err := requiredString(fields, "recipient_id")
	if err != nil {
		return model.Message{}, err
	}

	sender, err := json.Marshal(senderID)
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to encode sender: %w", err)
	}
	fields["sender_id"] = sender

	payload, err := json.Marshal(fields)
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to encode control event: %w", err)
	}

	return model.Message{
		Kind:        model.KindControl,
		SenderID:    senderID,
		RecipientID: recipientID,
		ChannelID:   rawText(fields["channel_id"]),
		Payload:     payload,
	}, nil
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s is required", ErrMalformedEvent, key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string", ErrMalformedEvent, key)
	}
	return s, nil
}

// truthy mirrors loose truthiness: absent, null, false, 0, "" and empty
// containers are all false.
func truthy(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	switch string(v) {
	case "", "null", "false", "0", `""`, "[]", "{}":
		return false
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f != 0
	}
	return true
}

func isNull(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	return len(v) == 0 || string(v) == "null"
}

// rawText returns a JSON string's value, or the raw JSON for other types.
func rawText(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
