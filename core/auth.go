package core

import "time"

// Challenge represents an issued message awaiting a signature
type Challenge struct {
	ID       string    `json:"id"`        // hex SHA-256 of Message
	Message  string    `json:"message"`   // Display text with the embedded nonce
	Nonce    string    `json:"nonce"`     // Random nonce embedded in Message
	IssuedAt time.Time `json:"issued_at"` // When the challenge was created
}

// IssuedChallenge is returned to the client after a challenge request
type IssuedChallenge struct {
	AuthenticationID string `json:"authenticationId"`
	Message          string `json:"message"`
}

// VerifyRequest carries a signed message submitted for verification
type VerifyRequest struct {
	Message   string `json:"message"`
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
	Chain     Chain  `json:"chain,omitempty"`
}

// VerifyResult is the outcome of a verification attempt
type VerifyResult struct {
	Result           bool   `json:"result"`
	AuthenticationID string `json:"authenticationId"`
	Address          string `json:"address"`
}

// AuthenticationRecord is the stored outcome of a verification attempt.
// Records are immutable once written.
type AuthenticationRecord struct {
	AuthenticationID string    `json:"authenticationId"`
	Address          string    `json:"address"`
	Result           bool      `json:"result"`
	Chain            Chain     `json:"chain"`
	VerifiedAt       time.Time `json:"verifiedAt"`
}

// VerificationEvent is published after every verification attempt
type VerificationEvent struct {
	AuthenticationID string    `json:"authentication_id"`
	Address          string    `json:"address"`
	Chain            Chain     `json:"chain"`
	Result           bool      `json:"result"`
	VerifiedAt       time.Time `json:"verified_at"`
}
