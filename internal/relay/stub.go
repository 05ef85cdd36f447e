//go:build !linux

package relay

import "errors"

// LineOutput is not available on non-Linux platforms.
type LineOutput struct{}

// NewLineOutput returns an error on non-Linux platforms.
func NewLineOutput(chipName string, pin int) (*LineOutput, error) {
	return nil, errors.New("relay: gpio not supported on this platform (requires Linux)")
}

func (o *LineOutput) Set(on bool) error {
	return errors.New("relay: gpio not supported")
}

func (o *LineOutput) Close() error {
	return nil
}
