/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package absauthn provides a WebAuthn-style relying party framework whose
// assertions are attribute-based signatures over the FP256BN pairing curve.
//
// Packages for end developer usage
//
// pkg/protocol/assertion: The two-phase challenge/response protocol service.
// It issues random challenges bound to a user and an authentication
// policy and validates the returned assertion against the stored attester
// public key and the server's trusted key.
//
// pkg/crypto/primitive/absfp256bn: The attribute-based signature scheme
// used by the protocol. It can also be used directly for signing and
// verification outside of the assertion flow.
//
// pkg/controller: REST API handlers exposing the assertion protocol, wired
// into an HTTP server by cmd/absauthn-rest.
package absauthn
