/*
Package hiero facilitates interaction with a Hedera-style ledger network,
with the intention of allowing transactions to be built, frozen, signed and
submitted to consensus nodes, and their receipts and records retrieved.

The package implements only the client side of the protocol: node channel
management with certificate pinning, the transaction freeze/sign/execute
lifecycle, and receipt/record reconciliation. It does not implement
consensus, ledger state, or cryptographic primitives.
*/

package hiero
