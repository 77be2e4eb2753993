// Package mqtt publishes lyricera ledger activity to an MQTT broker.
//
// Every completed ledger operation is announced on
// lyricera/activity/{operation} as a JSON activity entry, so other services
// can react to new accounts and NFT movements without polling the API.
//
// The client also maintains a retained lyricera/system/status message
// ("online" on connect, "offline" on graceful close, and an LWT "offline"
// with reason unexpected_disconnect if the process dies).
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.Activity("mint_nft"), entry)
//
// Publishing is optional for the service: when the broker is disabled or
// unreachable, activity is still journaled locally.
package mqtt
