// Package verifier answers the mint-time eligibility question "is this proof
// acceptable?" with a plain boolean.
//
// Two implementations share that contract:
//   - Mock is the togglable stand-in: SetValid forces every Verify outcome.
//   - Groth16 checks a zero-knowledge proof that the presenter knows the
//     secret behind a KYC attestation (a MiMC commitment binding a secret to a
//     holder address) that an issuer has registered with Attest.
//
// Neither ever returns an error from Verify. Malformed input is simply not
// eligible.
package verifier
