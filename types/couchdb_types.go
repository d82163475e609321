package types

type OK struct {
	IsOK bool   `json:"ok"`
	ID   string `json:"id,omitempty"`
	Rev  string `json:"rev,omitempty"`
}

type CouchDBError struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// BaseDocument carries the CouchDB identity of a stored document
type BaseDocument struct {
	ID      string `json:"_id,omitempty"`
	Rev     string `json:"_rev,omitempty"`
	Deleted bool   `json:"_deleted,omitempty"`
}
