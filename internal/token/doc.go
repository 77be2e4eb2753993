// Package token manages the operator's NFT collections.
//
// The operator account is treasury, admin key and supply key of every
// collection it creates. Collections are FINITE with the configured max
// supply (250 by default). Minting produces one serial per call; burning
// and transferring act on a single serial; association is signed by the
// receiving account and must precede any transfer into it.
//
// After CreateNFT the treasury's balance is read back from the mirror node,
// which lags consensus by a few seconds. If the record has not appeared by
// the polling deadline the balance is left out of the result.
//
// Every operation opens and closes its own ledger session and is journaled
// through the activity recorder, success or failure.
package token
