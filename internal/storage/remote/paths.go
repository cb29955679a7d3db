package remote

import "path"

// Collections and fixed document ids under a user's namespace.
const (
	CollectionBusinessPlan = "business_plan"
	CollectionProgress     = "progress"
	CollectionVendors      = "vendors"
	CollectionDrafts       = "drafts"
	CollectionMetadata     = "metadata"

	DocBusinessPlan   = "business_plan_data"
	DocProgress       = "progress_data"
	DocDraftsMetadata = "drafts_metadata"
)

// UserCollections is every collection DeleteUser clears.
var UserCollections = []string{
	CollectionBusinessPlan,
	CollectionProgress,
	CollectionVendors,
	CollectionDrafts,
	CollectionMetadata,
}

const (
	rootCollection  = "artifacts"
	usersCollection = "users"
)

// UsersPath is "artifacts/{appId}/users".
func UsersPath(appID string) string {
	return path.Join(rootCollection, appID, usersCollection)
}

// UserPath is "artifacts/{appId}/users/{uid}".
func UserPath(appID, uid string) string {
	return path.Join(UsersPath(appID), uid)
}

// CollectionPath is "artifacts/{appId}/users/{uid}/{collection}".
func CollectionPath(appID, uid, collection string) string {
	return path.Join(UserPath(appID, uid), collection)
}

// DocPath is "artifacts/{appId}/users/{uid}/{collection}/{docId}".
func DocPath(appID, uid, collection, docID string) string {
	return path.Join(CollectionPath(appID, uid, collection), docID)
}
