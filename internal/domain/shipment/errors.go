package shipment

import "github.com/supplytrace/backend/internal/domain/shared"

// Validation errors
var (
	ErrInvalidRadius      = shared.NewValidationError("INVALID_RADIUS", "Radius must be between 50 and 10000 meters")
	ErrInvalidETA         = shared.NewValidationError("INVALID_ETA", "Expected arrival must be between 1 hour and 90 days from now")
	ErrInvalidQuantity    = shared.NewInvalidInputError("INVALID_QUANTITY", "Quantity must be positive")
	ErrInvalidParty       = shared.NewInvalidInputError("INVALID_PARTY", "Manufacturer account is required")
	ErrInvalidUpkeepData  = shared.NewValidationError("INVALID_UPKEEP_PAYLOAD", "Upkeep payload must encode a shipment id")
	ErrMalformedLocation  = shared.NewValidationError("MALFORMED_LOCATION_PAYLOAD", "Location payload must be two 32-byte signed words")
	ErrInvalidCoordinates = shared.NewValidationError("INVALID_COORDINATES", "Destination coordinates are out of range")
)

// Authorization errors
var (
	ErrUnauthorizedManufacturer = shared.NewAuthorizationError("UNAUTHORIZED_MANUFACTURER", "Caller is not the manufacturer of this shipment")
)

// State-machine errors
var (
	ErrShipmentNotCreated      = shared.NewDomainError("SHIPMENT_NOT_CREATED", "Shipment is not in CREATED status")
	ErrShipmentNotInTransit    = shared.NewDomainError("SHIPMENT_NOT_IN_TRANSIT", "Shipment is not in IN_TRANSIT status")
	ErrShipmentNotArrived      = shared.NewDomainError("SHIPMENT_NOT_ARRIVED", "Shipment has not arrived")
	ErrUpkeepAlreadyInProgress = shared.NewDomainError("UPKEEP_ALREADY_IN_PROGRESS", "A verification request is already outstanding for this shipment")
	ErrUpkeepNotNeeded         = shared.NewDomainError("UPKEEP_NOT_NEEDED", "Shipment is not eligible for a verification poll")
	ErrForceArrivalTooEarly    = shared.NewDomainError("FORCE_ARRIVAL_TOO_EARLY", "Manufacturer override is allowed 24 hours after the expected arrival")
)

// Not-found errors
var (
	ErrShipmentNotFound = shared.NewNotFoundError("SHIPMENT_NOT_FOUND", "Shipment not found")
	ErrRequestNotFound  = shared.NewNotFoundError("REQUEST_NOT_FOUND", "Verification request not found")
)
