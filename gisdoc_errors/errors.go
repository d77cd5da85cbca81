// Provides common gisdoc errors definitions.
package gisdoc_errors

import "errors"

var (
	ErrUnknownType    = errors.New("gisdoc: unknown object type")
	ErrValidation     = errors.New("gisdoc: parameter validation failed")
	ErrAmbiguousInput = errors.New("gisdoc: ambiguous or missing input")

	ErrLayerNotFound    = errors.New("gisdoc: no layer found with this id")
	ErrSourceNotFound   = errors.New("gisdoc: no source found with this id")
	ErrNoFiltersApplied = errors.New("gisdoc: no filters applied to the layer")
	ErrFeatureNotFound  = errors.New("gisdoc: no filter found for the feature")

	ErrBadDocumentFile = errors.New("gisdoc: bad document state")
	ErrClosed          = errors.New("gisdoc: no document open")
)
