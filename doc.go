// Package wabisabi implements the client-side cryptographic core of
// the WabiSabi anonymous-credential coinjoin protocol: keyed-
// verification anonymous credentials over amount and vsize attributes,
// the request/response protocol between clients and a coordinator, and
// the statement builders (show, opening, range, balance, issuance)
// composed through the zkp subpackage. The graph and scheduler
// subpackages turn input/output sets into executable credential
// dependency graphs.
package wabisabi
