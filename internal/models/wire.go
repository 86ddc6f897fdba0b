package models

// MessageTypeSnapshot tags a full ledger snapshot pushed over WebSocket.
const MessageTypeSnapshot = "snapshot"

// SnapshotMessage is the WebSocket frame carrying every ledger entry.
type SnapshotMessage struct {
	Type    string  `json:"type"`
	Entries []Entry `json:"entries"`
}

type BlobCreated struct {
	CID string `json:"cid"`
}

type RecordCreated struct {
	ID string `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
