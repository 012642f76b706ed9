package model

import "encoding/json"

// Item is a feed entry referenced by notifications.
type Item struct {
	Item string          `json:"item"`
	Type string          `json:"type,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ItemFields are the hash fields read back when joining a notification list.
var ItemFields = []string{"item", "type", "data"}

func (i Item) Fields() map[string]string {
	data := string(i.Data)
	if data == "" {
		data = "null"
	}
	out := map[string]string{"item": i.Item, "data": data}
	if i.Type != "" {
		out["type"] = i.Type
	}
	return out
}

// Notification is one pending entry resolved against its item.
type Notification struct {
	Item string `json:"item"`
	Type string `json:"type,omitempty"`
	Data any    `json:"data"`
}

// NotificationFromRow decodes a joined row ordered like ItemFields. ok is
// false when the item record no longer exists.
func NotificationFromRow(row []string) (n Notification, ok bool) {
	if len(row) < len(ItemFields) || row[0] == "" {
		return Notification{}, false
	}
	n = Notification{Item: row[0], Type: row[1]}
	if row[2] != "" {
		var v any
		if err := json.Unmarshal([]byte(row[2]), &v); err == nil {
			n.Data = v
		} else {
			n.Data = row[2]
		}
	}
	return n, true
}
