package mqtt

// TopicPrefix is the root of every topic lyricera publishes.
const TopicPrefix = "lyricera"

// Topics provides builders for lyricera MQTT topics.
//
//	topic := mqtt.Topics{}.Activity("mint_nft")
//	// Returns: "lyricera/activity/mint_nft"
type Topics struct{}

// Activity returns the topic a completed ledger operation is announced on.
func (Topics) Activity(operation string) string {
	return TopicPrefix + "/activity/" + operation
}

// SystemStatus returns the retained online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}
