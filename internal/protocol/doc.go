// Package protocol holds the vocabulary shared by every component of the
// deposit-token protocol: account and component addresses, fixed-point
// reserve ratios, the error taxonomy and the typed notifications each
// mutating operation emits.
//
// Components never import each other. The token ledger consumes the
// governance controller, the reserve oracle and the proof verifier through
// small interfaces, and all of them speak in the types declared here.
package protocol
