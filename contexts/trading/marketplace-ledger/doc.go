// Package marketplaceledger contains the single-ledger marketplace: assets,
// fixed-price listings and escrowed offers.
//
// Every mutating operation runs inside one ledger transaction, so it either
// applies all of its effects or none of them.
package marketplaceledger
