package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type MessageType string

const (
	MessageSync   MessageType = "sync"
	MessageDelete MessageType = "delete"
)

// TransactionMessage carries only the id and version; the worker reads the
// row from SQLite.
type TransactionMessage struct {
	Type      MessageType `json:"type"`
	ID        string      `json:"id"`
	Version   int64       `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewSyncMessage(id string, version int64) *TransactionMessage {
	return &TransactionMessage{Type: MessageSync, ID: id, Version: version, Timestamp: time.Now()}
}

func NewDeleteMessage(id string, version int64) *TransactionMessage {
	return &TransactionMessage{Type: MessageDelete, ID: id, Version: version, Timestamp: time.Now()}
}

func (m *TransactionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON decodes a message. A missing type is read as sync.
func MessageFromJSON(data []byte) (*TransactionMessage, error) {
	var msg TransactionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		msg.Type = MessageSync
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message without id")
	}
	return &msg, nil
}
