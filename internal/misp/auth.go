package misp

// AuthHeaders is the header set sent on every MISP API call.
type AuthHeaders map[string]string

// BuildAuthHeader returns the headers MISP requires for key. The key is an
// opaque token and is passed through unchanged.
func BuildAuthHeader(key string) AuthHeaders {
	return AuthHeaders{
		"Authorization": key,
		"Accept":        "application/json",
		"Content-Type":  "application/json",
	}
}
