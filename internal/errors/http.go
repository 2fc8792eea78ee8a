package errors

import (
	"encoding/json"
	"net/http"
)

// HTTPErrorResponse wraps a GatewayError for HTTP JSON responses.
type HTTPErrorResponse struct {
	Error GatewayError `json:"error"`
}

// WriteHTTPError writes a GatewayError as an HTTP JSON response.
func WriteHTTPError(w http.ResponseWriter, err *GatewayError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(HTTPErrorResponse{Error: *err})
}
