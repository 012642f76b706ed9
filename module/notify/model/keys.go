package model

import "strings"

// Redis key layout. Every namespace has its own literal prefix; ids are
// rejected when they contain ':' so "user:<id>" never collides with
// "user:state:<id>".
const (
	PendingUsersKey = "users"
	BucketPrefix    = "notify:bucket:"
	ItemPattern     = "item:*"
)

// View state hash fields.
const (
	FieldLastView          = "last_view"
	FieldPreviousView      = "previous_view"
	FieldFirstView         = "first_view"
	FieldBucketKey         = "bucket_key"
	FieldBucketPeriod      = "bucket_period"
	FieldBucketPeriodIndex = "bucket_period_index"
)

func UserKey(id string) string         { return "user:" + id }
func UsernameKey(name string) string   { return "username:" + name }
func UserAltidKey(altid string) string { return "useraltid:" + altid }
func ViewStateKey(id string) string    { return "user:state:" + id }
func NotifyKey(id string) string       { return "notify:" + id }
func ItemKey(id string) string         { return "item:" + id }

// BucketKey namespaces a slot such as "20261014:09". A value that is
// already a bucket key is returned unchanged.
func BucketKey(slot string) string {
	if strings.HasPrefix(slot, BucketPrefix) {
		return slot
	}
	return BucketPrefix + slot
}

// BucketSlot strips the bucket prefix.
func BucketSlot(key string) string {
	return strings.TrimPrefix(key, BucketPrefix)
}
