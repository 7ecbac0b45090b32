package server

// Route paths. Trailing slashes are load-bearing: clients carry them.
const (
	RouteRegister       = "/register/"
	RouteAuth           = "/auth/"
	RouteAuthRefresh    = "/auth/refresh/"
	RouteGoogleLogin    = "/google/login/"
	RouteGoogleCallback = "/google/callback/"
	RouteUserList       = "/list/"
)

// initRoutes is the explicit route table: each entry maps one
// (method, path) pair to one session transition.
func (s *Server) initRoutes() {
	// Native register / login / introspect / logout / refresh
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuth, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuth, ChainMiddleware(s.IntrospectHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("DELETE "+RouteAuth, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))

	// Google social login
	if s.google != nil {
		s.RegisterRouteHandler("GET "+RouteGoogleLogin, ChainMiddleware(s.GoogleLoginHandler(), s.APIMiddleware()...))
		s.RegisterRouteHandler("GET "+RouteGoogleCallback, ChainMiddleware(s.GoogleCallbackHandler(), s.APIMiddleware()...))
	}

	// Diagnostic listing, bearer-token protected
	s.RegisterRouteHandler("GET "+RouteUserList, ChainMiddleware(s.ListUsersHandler(), s.APIMiddleware(s.RequireBearerAuth)...))
}
