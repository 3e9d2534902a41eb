package realtime

import "fmt"

// CredentialError means the broker was unreachable or returned no usable
// credential. Fatal to session start; never retried automatically.
type CredentialError struct {
	Status int
	Body   string
	Err    error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential: %v", e.Err)
	}
	return fmt.Sprintf("credential: broker returned %d: %s", e.Status, e.Body)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// NegotiationError means peer connection setup or the SDP exchange failed.
// Fatal to that start attempt; the user may retry via reconnect.
type NegotiationError struct {
	Stage  string
	Status int
	Body   string
	Err    error
}

func (e *NegotiationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("negotiation: %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("negotiation: %s: remote returned %d: %s", e.Stage, e.Status, e.Body)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// DeviceError means the microphone is unavailable or access was denied.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device: microphone unavailable: %v", e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// TurnViolation marks a response the remote opened outside its turn, in
// single-response mode. The intruder is cancelled and the session continues;
// this type exists so the cancellation can be logged with the offender's ID.
type TurnViolation struct {
	ResponseID string
}

func (e *TurnViolation) Error() string {
	return fmt.Sprintf("turn: cancelling out-of-turn response %s", e.ResponseID)
}

// ProtocolAnomaly is a malformed inbound message. The offending message is
// dropped and the stream continues; this type exists so the drop can be
// logged with the raw payload attached.
type ProtocolAnomaly struct {
	Raw []byte
	Err error
}

func (e *ProtocolAnomaly) Error() string {
	return fmt.Sprintf("protocol: dropping malformed event: %v", e.Err)
}

func (e *ProtocolAnomaly) Unwrap() error { return e.Err }
