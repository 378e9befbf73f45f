package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// Preflight for every account route; CorsMiddleware answers it.
	s.RegisterRouteHandler("OPTIONS "+RouteUserPrefix+"/", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	// PUBLIC
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware(s.UploadBodyLimit)...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware(s.JSONBodyLimit)...))
	s.RegisterRouteHandler("POST "+RouteRefreshToken, ChainMiddleware(s.RefreshTokenHandler(), s.APIMiddleware(s.JSONBodyLimit)...))

	// SECURED
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.JSONBodyLimit, s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteUpdatePassword, ChainMiddleware(s.UpdatePasswordHandler(), s.APIMiddleware(s.JSONBodyLimit, s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteUpdateUserDetails, ChainMiddleware(s.UpdateUserDetailsHandler(), s.APIMiddleware(s.JSONBodyLimit, s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteGetUserDetails, ChainMiddleware(s.GetUserDetailsHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteUpdateAvatar, ChainMiddleware(s.UpdateAvatarHandler(), s.APIMiddleware(s.UploadBodyLimit, s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteUpdateCoverImage, ChainMiddleware(s.UpdateCoverImageHandler(), s.APIMiddleware(s.UploadBodyLimit, s.RequireAuth())...))
}
