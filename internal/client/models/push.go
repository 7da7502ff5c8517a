package models

// PushKeys are the public key material of a push subscription.
type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription is the endpoint + keys tuple registered with the story
// server, in the JSON shape the server expects.
type PushSubscription struct {
	Endpoint string   `json:"endpoint"`
	Keys     PushKeys `json:"keys"`
}
