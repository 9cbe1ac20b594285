package entrel

// Event is a serverless invocation carrying query parameters.
// The handler reads the "url" parameter.
type Event struct {
	QueryParameters map[string]string `json:"queryParameters"`
}

// Response is an HTTP-style invocation result.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}
