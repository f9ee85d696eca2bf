package http

import (
	"net/http"

	"github.com/pkg/errors"
)

func isSuccessStatusCode(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// EnsureSuccessStatusCode rejects any response outside the 2xx range.
func EnsureSuccessStatusCode(resp *http.Response) error {
	if !isSuccessStatusCode(resp) {
		return errors.New("http response did not indicate success status code: " + resp.Status)
	}
	return nil
}
