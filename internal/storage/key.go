package storage

import "github.com/google/uuid"

func newUniquePrefix() string {
	return uuid.New().String()
}
