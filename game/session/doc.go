// Package session implements the payment-channel session coordinator: the
// quorum-signature negotiation that turns a room full of mutually-distrusting
// participants plus the custodial settlement service into one authorized
// channel session, and the append-only audit trail embedded in every session
// payload.
//
// Lifecycle:
//
//	Propose            builds the unsigned proposal and the service signature
//	CollectSignature   gathers player attestations over the frozen tuple
//	Establish          assembles the ordered envelope and submits it
//	Checkpoint         advisory mid-game state submission (non-fatal)
//	Close              final payout submission and session teardown
//
// The Arena owns all pending and active sessions, keyed by room id and
// session id respectively. The Negotiator drives the protocol against the
// settlement service through the Ledger interface, so tests can run it
// against a fake.
package session
