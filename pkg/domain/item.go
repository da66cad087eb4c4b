package domain

import (
	"strconv"

	dErrors "cinematch/pkg/domain-errors"
)

// ItemID identifies the unit being voted on. It carries the upstream movie
// database identifier, so it is numeric rather than UUID-backed.
type ItemID int64

func (id ItemID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseItemID parses an item ID from its string form. Upstream IDs are
// strictly positive.
func ParseItemID(raw string) (ItemID, error) {
	if raw == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "item id must not be empty")
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "item id must be an integer")
	}
	if parsed <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "item id must be positive")
	}
	return ItemID(parsed), nil
}
