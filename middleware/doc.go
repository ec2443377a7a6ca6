// Package middleware holds the HTTP guards of the development backend.
//
//   - [Guard] checks the bearer token through a [Validator] and stores the
//     [Principal] in the request context.
//   - [RequireRole] restricts a route to the given roles.
//
// Rejections use the backend's JSON envelope so the admin client's gateway
// treats them like any other backend answer.
package middleware
