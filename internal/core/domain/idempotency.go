package domain

import "time"

// IdempotencyRecord stores the result of an applied request so that a retried
// call with the same key returns it instead of mutating again.
type IdempotencyRecord struct {
	Key          string    `json:"key"` // Format: "<op>:<account_id>:<client_key>"
	AccountID    AccountID `json:"account_id"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildIdempotencyKey scopes a client key to a single-account operation.
func BuildIdempotencyKey(accountID AccountID, clientKey string) string {
	return "apply:" + accountID.String() + ":" + clientKey
}

// BuildTransferIdempotencyKey scopes a client key to transfers sent by from.
func BuildTransferIdempotencyKey(from AccountID, clientKey string) string {
	return "transfer:" + from.String() + ":" + clientKey
}
