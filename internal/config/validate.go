package config

import (
	"errors"
	"fmt"
)

var (
	ErrNoConcurrency = errors.New("concurrency must be at least 1")
	ErrBadNoteSize   = errors.New("note size must be a positive even number")
	ErrBadCRF        = errors.New("crf must be in [0, 51]")
	ErrBadTimeout    = errors.New("encode timeout must be positive")
)

// Validate checks invariants that would otherwise surface as confusing
// runtime failures deep inside the pipeline.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: got %d", ErrNoConcurrency, c.Concurrency)
	}
	if c.NoteSize <= 0 || c.NoteSize%2 != 0 {
		return fmt.Errorf("%w: got %d", ErrBadNoteSize, c.NoteSize)
	}
	if c.CRF < 0 || c.CRF > 51 {
		return fmt.Errorf("%w: got %d", ErrBadCRF, c.CRF)
	}
	if c.EncodeTimeout <= 0 {
		return fmt.Errorf("%w: got %s", ErrBadTimeout, c.EncodeTimeout)
	}
	if c.UserCooldown < 0 {
		return errors.New("user cooldown must not be negative")
	}
	return nil
}

// SizeLimitBytes converts the MiB ceiling to bytes; 0 means disabled.
func (c Config) SizeLimitBytes() int64 {
	if c.SizeLimitMiB <= 0 {
		return 0
	}
	return int64(c.SizeLimitMiB * 1024 * 1024)
}
