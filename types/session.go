package types

// ChallengeSession binds a one-time WebAuthn challenge to a session identifier
type ChallengeSession struct {
	ID        string `json:"id"`
	Challenge []byte `json:"challenge"`
	UserID    string `json:"userId,omitempty"` // username when the options were requested by a signed in user
	Created   int64  `json:"created"`          // unix millis
	Expires   int64  `json:"expires"`          // unix millis
}

// UserSession maps a cookie token to a username
type UserSession struct {
	Username string `json:"username"`
	Created  int64  `json:"created"`
}
