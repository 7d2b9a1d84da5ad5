package visualmap

import "github.com/pkg/errors"

var (
	// ErrNoObservations is returned when an operation needs a point with at least one observation.
	ErrNoObservations = errors.New("visual point has no observations")
	// ErrViewpointTooOblique is returned when every observation of a point deviates too much from
	// the query viewpoint.
	ErrViewpointTooOblique = errors.New("no observation within the viewpoint threshold")
	// ErrDanglingReference means a feature, frame or point refers to a peer that no longer holds
	// it. It indicates a bug in the deletion protocol.
	ErrDanglingReference = errors.New("dangling reference")
	// ErrFrameRetired is returned when anchoring a feature in a frame already detached from the map.
	ErrFrameRetired = errors.New("frame has been retired")
	// ErrNotObservation is returned when a feature is used as an observation of a point it does
	// not belong to.
	ErrNotObservation = errors.New("feature is not an observation of this point")
	// ErrPointRegistered is returned when inserting a point that is already in a map.
	ErrPointRegistered = errors.New("visual point is already registered")
	// ErrPointNotRegistered is returned when a point is not part of the map.
	ErrPointNotRegistered = errors.New("visual point is not registered")
	// ErrFeatureOutOfBounds is returned when a feature's pixel or level does not fit its frame.
	ErrFeatureOutOfBounds = errors.New("feature lies outside the frame pyramid")
)
