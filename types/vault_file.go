package types

import "encoding/json"

// VaultFile is the opaque encrypted blob owned by exactly one user. It is only ever replaced wholesale.
type VaultFile struct {
	BaseDocument `json:",inline"`
	Owner        string          `json:"owner"`
	Data         json.RawMessage `json:"data,omitempty"`
	Location     string          `json:"location,omitempty"` // s3://bucket/key when the blob lives outside the database
	Created      int64           `json:"created"`
}
