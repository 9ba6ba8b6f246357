package chathub

import (
	"errors"
	"fmt"

	"globalchat/backend/internal/config"
)

// ErrSelfPair is returned when both participants of a pair are the same.
var ErrSelfPair = errors.New("cannot pair a participant with itself")

// PairGroup returns the private group shared by two distinct participants.
// The name does not depend on argument order: private_<min>_<max>.
func PairGroup(a, b uint) (string, error) {
	if a == b {
		return "", ErrSelfPair
	}
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%s_%d_%d", config.PrivateGroupPrefix, a, b), nil
}
