package xid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// New returns "<prefix>-<uuidv7>". Version 7 ids sort by creation time.
func New(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return fmt.Sprintf("%s-%s", prefix, id.String())
}

// Prefix returns the part of id before the first dash, or "" if there is none.
func Prefix(id string) string {
	prefix, _, found := strings.Cut(id, "-")
	if !found {
		return ""
	}
	return prefix
}
