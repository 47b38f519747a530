package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrIndex = errors.New("media index error")
	ErrStore = errors.New("library store error")
)

func wrapIndex(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrIndex, err)
}

func wrapStore(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStore, err)
}
