package model

import (
	"encoding/json"
	"time"
)

// User is the directory record for a feed owner.
type User struct {
	User     string         `json:"user"`
	Username string         `json:"username,omitempty"`
	Altid    string         `json:"altid,omitempty"`
	UserData map[string]any `json:"userdata"`
	Created  time.Time      `json:"created,omitempty"`
}

const (
	fieldUser     = "user"
	fieldUsername = "username"
	fieldAltid    = "altid"
	fieldUserData = "userdata"
	fieldCreated  = "created"
)

// FieldCreated is written once with HSETNX.
const FieldCreated = fieldCreated

// Fields returns the non-empty hash fields of u. Empty optional fields and a
// nil UserData are left out so a later partial upsert never blanks a stored
// value; an explicit empty UserData resets it to {}.
func (u User) Fields() map[string]string {
	out := map[string]string{fieldUser: u.User}
	if u.Username != "" {
		out[fieldUsername] = u.Username
	}
	if u.Altid != "" {
		out[fieldAltid] = u.Altid
	}
	if u.UserData != nil {
		b, err := json.Marshal(u.UserData)
		if err != nil {
			b = []byte("{}")
		}
		out[fieldUserData] = string(b)
	}
	return out
}

// UserFromFields rebuilds a User from its hash. Unparseable userdata falls
// back to an empty object.
func UserFromFields(m map[string]string) User {
	u := User{
		User:     m[fieldUser],
		Username: m[fieldUsername],
		Altid:    m[fieldAltid],
		UserData: parseObject(m[fieldUserData]),
	}
	if ts, ok := m[fieldCreated]; ok {
		u.Created, _ = time.Parse(time.RFC3339, ts)
	}
	return u
}

func parseObject(s string) map[string]any {
	out := map[string]any{}
	if s == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}
