package api

import "github.com/google/uuid"

func newRunID() string {
	return uuid.NewString()
}
