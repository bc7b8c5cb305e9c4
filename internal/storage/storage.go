package storage

import (
	"errors"
)

var (
	ErrProfileRequestNotFound      = errors.New("profile request not found")
	ErrProfileRequestExists        = errors.New("profile request already exists")
	ErrOrcidProfileNotFound        = errors.New("orcid profile not found")
	ErrOrcidProfileAlreadyAssigned = errors.New("orcid profile already assigned")
)
