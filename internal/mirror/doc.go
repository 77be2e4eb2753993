// Package mirror reads confirmed state from a Hedera mirror node.
//
// Mirror nodes ingest consensus records a few seconds after the fact, so a
// freshly created token has no balance record yet. TokenBalance polls the
// /api/v1/accounts/{id}/tokens endpoint with exponential backoff until the
// record appears or the configured deadline passes.
//
//	client := mirror.New(cfg.Mirror, logger)
//	balance, err := client.TokenBalance(ctx, "0.0.1001", "0.0.4242")
//	if errors.Is(err, mirror.ErrNotIngested) {
//	    // still propagating
//	}
package mirror
