package service

import (
	"time"

	"lendhub/internal/domain"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock. Tests substitute a fixed clock.
func SystemClock() domain.Clock { return systemClock{} }
