package signrequest

// CreatedEvent fires after a request and its token are persisted.
type CreatedEvent struct {
	Result Request
}

// SignedEvent fires after a signature is recorded and the request reaches
// the signed status.
type SignedEvent struct {
	Result    Request
	Signature Signature
}

// DeclinedEvent fires when a signer declines.
type DeclinedEvent struct {
	Result Request
	Reason string
}

// CancelledEvent fires when a request is cancelled by an operator.
type CancelledEvent struct {
	Result Request
}

// ExpiredEvent fires when the sweep transitions a request to expired.
type ExpiredEvent struct {
	Result Request
}

// VerifiedEvent fires when the signer completes identity verification.
type VerifiedEvent struct {
	Result Request
}
