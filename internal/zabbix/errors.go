package zabbix

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrAuth means credentials were missing or rejected, or the endpoint
	// could not be reached while logging in.
	ErrAuth = errors.New("zabbix: authentication failed")
	// ErrNotFound means a required group or host does not exist.
	ErrNotFound = errors.New("zabbix: not found")
	// ErrEmptyResult means the response carried neither result nor error.
	ErrEmptyResult = errors.New("zabbix: empty result")
)

// APIError is the error object of a JSON-RPC response.
type APIError struct {
	Method  string `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *APIError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("zabbix %s: %s (%d): %s", e.Method, e.Message, e.Code, e.Data)
	}
	return fmt.Sprintf("zabbix %s: %s (%d)", e.Method, e.Message, e.Code)
}
