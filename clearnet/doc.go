// Package clearnet implements the client side of the settlement-service
// protocol: one authenticated websocket connection multiplexing every logical
// exchange the server has with the clearnode.
//
// The package is split along the protocol layers:
//   - signer.go: secp256k1 identities, ephemeral session keys, signatures
//   - envelope.go: the wire codec ({req:[...]}/{res:[...]}/{err:[...]})
//   - correlator.go: request/response correlation with per-call timeouts
//   - conn.go: connection lifecycle and the challenge/response handshake
//   - client.go: session create/checkpoint/close submissions
//
// Everything above this package (negotiation, rooms, the game itself) talks
// to the settlement service exclusively through Client.
package clearnet
