package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrRepository marks persistence failures so transport layers can map
	// them to a generic server error instead of leaking driver details.
	ErrRepository = errors.New("repository failure")

	// ErrInvalidSource is returned when an add request carries neither a
	// magnet link nor raw metainfo, or both at once.
	ErrInvalidSource = errors.New("invalid torrent source")
)

func wrapRepo(err error) error {
	return fmt.Errorf("%w: %v", ErrRepository, err)
}
