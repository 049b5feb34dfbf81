// Package identity names the request headers that carry the acting staff
// member and their active location. Both the server and the client use them.
package identity

const (
	HeaderUserID     = "x-user-id"
	HeaderLocationID = "x-location-id"
)
