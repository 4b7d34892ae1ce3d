package rest

const (
	// api
	RouteApiV1 = "/api/v1"

	// media
	RouteMedia               = RouteApiV1 + "/media"
	RouteMediaItem           = RouteMedia + "/:media_id"
	RouteMediaProfilePicture = RouteMediaItem + "/profile-picture"
	RouteMediaFeatured       = RouteMediaItem + "/featured"
	RouteQuota               = RouteApiV1 + "/quota"

	// batches
	RouteBatches = RouteApiV1 + "/batches"
	RouteBatch   = RouteBatches + "/:batch_id"

	// ops
	RouteHealth  = RouteApiV1 + "/healthz"
	RouteMetrics = RouteApiV1 + "/metrics"
)

const HeaderBatchID = "X-Batch-ID"
