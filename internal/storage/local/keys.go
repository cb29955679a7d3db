package local

import "strings"

// Entity names used in local keys.
const (
	EntityBusinessPlan   = "businessPlan"
	EntityProgress       = "progressData"
	EntityVendors        = "vendors"
	EntityDrafts         = "drafts"
	EntityDraftsMetadata = "draftsMetadata"
)

// Entities lists every entity stored per user.
var Entities = []string{
	EntityBusinessPlan,
	EntityProgress,
	EntityVendors,
	EntityDrafts,
	EntityDraftsMetadata,
}

// AnonymousUser stands in for an empty user id in keys.
const AnonymousUser = "anonymous"

// Prefix is the shared start of every key for entity in appID.
func Prefix(entity, appID string) string {
	return entity + "_" + appID + "_"
}

// Key builds "{entity}_{applicationId}_{userId}".
func Key(entity, appID, userID string) string {
	if userID == "" {
		userID = AnonymousUser
	}
	return Prefix(entity, appID) + userID
}

// UserFromKey extracts the user id from a key built by Key for the same
// entity and application. ok is false for foreign keys.
func UserFromKey(entity, appID, key string) (string, bool) {
	prefix := Prefix(entity, appID)
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	uid := strings.TrimPrefix(key, prefix)
	return uid, uid != ""
}
