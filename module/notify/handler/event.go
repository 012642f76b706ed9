package handler

import (
	"encoding/json"

	"FeedNotify/module/notify/model"
	errs "FeedNotify/tools/errs"
)

// Feed event actions.
const (
	ActionView   = "feed-view"
	ActionAdd    = "feed-add"
	ActionRemove = "feed-remove"
)

// Subject is the inbound subject / topic feed events arrive on.
const Subject = "seguir-notify"

type EventUser struct {
	User     string         `json:"user"`
	Username string         `json:"username,omitempty"`
	Altid    string         `json:"altid,omitempty"`
	UserData map[string]any `json:"userdata,omitempty"`
}

type EventItem struct {
	Item string `json:"item"`
	Type string `json:"type,omitempty"`
}

// Event is the envelope published by the feed service.
type Event struct {
	Action string          `json:"action"`
	User   EventUser       `json:"user"`
	Item   *EventItem      `json:"item,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// DecodeEvent parses raw. A payload that is not JSON is a validation error.
func DecodeEvent(raw []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, errs.ErrValidation.WrapErr(err, "decode feed event")
	}
	return ev, nil
}

// Validate checks the fields the action needs. Unknown actions pass; they
// are ignored by the handler.
func (e Event) Validate() error {
	switch e.Action {
	case ActionView, ActionAdd, ActionRemove:
	default:
		return nil
	}
	if e.User.User == "" {
		return errs.ErrValidation.WrapMsg("feed event without user", "action", e.Action)
	}
	if e.Action != ActionView && (e.Item == nil || e.Item.Item == "") {
		return errs.ErrValidation.WrapMsg("feed event without item", "action", e.Action, "user", e.User.User)
	}
	return nil
}

func (e Event) model() model.User {
	return model.User{
		User:     e.User.User,
		Username: e.User.Username,
		Altid:    e.User.Altid,
		UserData: e.User.UserData,
	}
}

func (e Event) item() model.Item {
	it := model.Item{Data: e.Data}
	if e.Item != nil {
		it.Item = e.Item.Item
		it.Type = e.Item.Type
	}
	return it
}
