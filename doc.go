// Package fedora serves as a basis for interacting with Fedora Project web
// services, providing sessions that handle authentication, cookies, and
// default request headers.
//
// Two session types are available, both implementing the Session interface
// so they can be used interchangeably: AnonymousSession for public
// endpoints, and OpenIDSession, which authenticates against one of the
// Fedora OpenID providers before handing out a session.
//
//	creds := fedora.Credentials{Username: "fedorauser", Password: "password12"}
//	session, err := fedora.NewOpenIDSession(ctx, "https://bodhi.fedoraproject.org/login", creds)
//	if err != nil {
//		return err
//	}
//	resp, err := session.Get(ctx, "https://bodhi.fedoraproject.org/user")
//
// Authentication uses the legacy OpenID 2.0 endpoint. The provider answers
// a scripted login with the signed OpenID parameters, which are then posted
// to the service named in openid.return_to to establish the service side
// session. Session cookies obtained this way are cached on disk and reused
// on the next run while still fresh, so scripted tools do not have to log
// in over and over. See CookieCache for inspecting that cache.
//
// The OpenID provider endpoint this package talks to has been deprecated
// for years and is reported to be broken server side, so logins against the
// real Fedora infrastructure are expected to fail. The implementation is
// kept faithful to the historical protocol.
package fedora
