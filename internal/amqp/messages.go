package amqp

import (
	"encoding/json"
	"time"
)

// SyncRequestMessage asks the worker to run one sync cycle for an
// account, outside the regular schedule.
type SyncRequestMessage struct {
	AccountID string    `json:"accountId"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSyncRequestMessage creates a sync request for an account.
func NewSyncRequestMessage(accountID string) *SyncRequestMessage {
	return &SyncRequestMessage{
		AccountID: accountID,
		Timestamp: time.Now(),
	}
}

func (m *SyncRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SyncRequestMessageFromJSON(data []byte) (*SyncRequestMessage, error) {
	var msg SyncRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// StatementUpdatedMessage announces that a sync changed an account's
// cached statement. Rollovers lists months just archived into history.
type StatementUpdatedMessage struct {
	AccountID string           `json:"accountId"`
	Total     int64            `json:"total"`
	Rollovers []ClosedMonthRef `json:"rollovers,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// ClosedMonthRef identifies one archived month and its closed total.
type ClosedMonthRef struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Total int64 `json:"total"`
}

// NewStatementUpdatedMessage creates an update event.
func NewStatementUpdatedMessage(accountID string, total int64, rollovers []ClosedMonthRef) *StatementUpdatedMessage {
	return &StatementUpdatedMessage{
		AccountID: accountID,
		Total:     total,
		Rollovers: rollovers,
		Timestamp: time.Now(),
	}
}

func (m *StatementUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func StatementUpdatedMessageFromJSON(data []byte) (*StatementUpdatedMessage, error) {
	var msg StatementUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
