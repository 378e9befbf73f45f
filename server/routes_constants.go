package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteUserPrefix = "/api/v1/user"

	// Public account routes
	RouteRegister     = RouteUserPrefix + "/register"
	RouteLogin        = RouteUserPrefix + "/login"
	RouteRefreshToken = RouteUserPrefix + "/refresh-token"

	// Routes behind the authentication gate
	RouteLogout            = RouteUserPrefix + "/logout"
	RouteUpdatePassword    = RouteUserPrefix + "/update-password"
	RouteUpdateUserDetails = RouteUserPrefix + "/update-user-details"
	RouteGetUserDetails    = RouteUserPrefix + "/get-user-details"
	RouteUpdateAvatar      = RouteUserPrefix + "/update-avatar"
	RouteUpdateCoverImage  = RouteUserPrefix + "/update-cover-image"

	RouteHealth = "/healthz"
)
