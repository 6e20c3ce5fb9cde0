package handler

// Route type
type Route string

const (
	// RouteCreate add a record
	RouteCreate Route = "create"
	// RouteRead read a record, optionally at a snapshot
	RouteRead Route = "read"
	// RouteUpdate replace a record
	RouteUpdate Route = "update"
	// RoutePatch merge patch a record
	RoutePatch Route = "patch"
	// RouteDelete remove a record
	RouteDelete Route = "delete"
	// RouteList list the ids of a document
	RouteList Route = "list"
	// RouteHistory list the snapshots of a document
	RouteHistory Route = "history"
	// RouteDiff compare a document between snapshots
	RouteDiff Route = "diff"
	// RouteHead get the latest snapshot
	RouteHead Route = "head"
)
