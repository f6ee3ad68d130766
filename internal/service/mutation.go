package service

import (
	"errors"
	"strings"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/model"
)

var errRejected = errors.New("mutation rejected")

// outcome turns a {success, message} envelope into a message or an error.
// The envelope never carries refreshed data; callers re-query.
func outcome(res *model.MutationResult, fallback string) (string, error) {
	if res == nil {
		return "", apperror.Upstream(fallback, errRejected)
	}
	msg := strings.TrimSpace(res.Message)
	if !res.Success {
		if msg == "" {
			msg = fallback
		}
		return "", apperror.Upstream(msg, errRejected)
	}
	if msg == "" {
		msg = "Analysis started"
	}
	return msg, nil
}
