// Package handler translates HTTP requests into service calls and service
// results into JSON responses.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming request (path params, query string, JSON body)
//  2. Call exactly one service operation
//  3. Write the response through writeJSON or responder.writeError
//
// Handlers hold no business rules. Validation, defaults and permissions live
// in the service layer; identity is already on the context, put there by
// auth.Authenticate.
package handler
