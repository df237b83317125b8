package domain

// TopicAppUninstalled is delivered when a shop removes the app
const TopicAppUninstalled = "app/uninstalled"

// WebhookEvent is a verified webhook delivery
type WebhookEvent struct {
	Topic   string
	Shop    string
	Payload []byte
}
