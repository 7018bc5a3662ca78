// Package api provides the HTTP server: credential-lifecycle endpoints and
// the character endpoints that integrate the authorization gate, the
// security filter and the visibility masker.
//
// # Routes
//
// Credential lifecycle:
//
//	POST   /auth/login      email+password login, rate limited per IP
//	POST   /auth/refresh    rotate a refresh token for a fresh pair
//	POST   /auth/logout     revoke the presented refresh token
//	DELETE /auth/sessions   revoke every session of the authenticated subject
//
// Characters:
//
//	GET    /characters       filtered, keyset-paginated, masked list
//	GET    /characters/{id}  single read through the gate
//	PUT    /characters/{id}  update through the gate
//	DELETE /characters/{id}  delete through the gate
//
// # Request pipeline
//
// Every request passes request-id, logging, metrics, recovery and an
// optional-mode authenticator. Anonymous requests reach the handlers with a
// nil subject; a presented-but-invalid token never does.
//
// List fetches compose the entitlement constraint, the caller's filter and
// the cursor predicate into one conjunction before the store sees it, and
// mask results element-wise afterwards. Single-resource operations resolve
// ownership through the gate before the policy decides.
//
// # Related Packages
//
//   - pkg/authz: policy engine, resolver, gate, filter builder
//   - pkg/token: token service behind the credential endpoints
//   - pkg/masking: post-fetch redaction
package api
