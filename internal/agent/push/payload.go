package push

import (
	"encoding/json"

	"github.com/dmitrijs2005/storysync/internal/agent/notify"
	"github.com/dmitrijs2005/storysync/internal/common"
)

const (
	ActionView  = "view"
	ActionClose = "close"
)

// Payload is the JSON a story server pushes. Every field is optional.
type Payload struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Message string `json:"message"`
	Icon    string `json:"icon"`
	URL     string `json:"url"`
	StoryID string `json:"storyId"`
}

func defaultNotification() notify.Notification {
	return notify.Notification{
		Title: "New Story Added",
		Body:  "Someone just shared a new story!",
		Icon:  "/images/icon-192x192.png",
		Badge: "/images/icon-72x72.png",
		Tag:   "story-notification",
		URL:   common.DefaultTargetURL,
	}
}

// BuildNotification merges the recognised fields of raw over the defaults.
// Fields are read one by one: a number is taken in its literal form and a
// field of any other type keeps its default. Input that is not a JSON object
// yields the defaults unchanged.
func BuildNotification(raw []byte) notify.Notification {
	n := defaultNotification()
	if len(raw) == 0 {
		return n
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return n
	}
	p := Payload{
		Title:   textField(fields, "title"),
		Body:    textField(fields, "body"),
		Message: textField(fields, "message"),
		Icon:    textField(fields, "icon"),
		URL:     textField(fields, "url"),
		StoryID: textField(fields, "storyId"),
	}

	if p.Title != "" {
		n.Title = p.Title
	}
	switch {
	case p.Body != "":
		n.Body = p.Body
	case p.Message != "":
		n.Body = p.Message
	}
	if p.Icon != "" {
		n.Icon = p.Icon
	}
	if p.URL != "" {
		n.URL = p.URL
	}
	if p.StoryID != "" {
		n.StoryID = p.StoryID
		n.Actions = []notify.Action{
			{Action: ActionView, Title: "View Story", Icon: "/images/icon-72x72.png"},
			{Action: ActionClose, Title: "Close"},
		}
	}
	return n
}

// textField returns fields[key] as text. Strings and numbers qualify.
func textField(fields map[string]json.RawMessage, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var num json.Number
	if err := json.Unmarshal(v, &num); err == nil {
		return num.String()
	}
	return ""
}
