package errors

import "errors"

var (
	ErrDistributionNotFound    = errors.New("distribution not found")
	ErrInitializerNotFound     = errors.New("initializer not found")
	ErrDistributionExists      = errors.New("distribution already exists")
	ErrInvalidInstance         = errors.New("invalid instance")
	ErrInstanceExists          = errors.New("instance address already recorded")
	ErrInstanceNotFound        = errors.New("instance not found")
	ErrInitializerNoReason     = errors.New("initializer failed without reason")
	ErrModuleNotHosted         = errors.New("code module is not hosted in this runtime")
	ErrInvalidDistributorInput = errors.New("invalid distributor input")
)
