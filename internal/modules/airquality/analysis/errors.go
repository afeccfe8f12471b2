package analysis

import (
	"errors"
	"fmt"

	"airquality-server/internal/modules/airquality/types"
)

// EmptyColumnError is returned when a column has no present values.
type EmptyColumnError struct {
	Column types.Column
}

func (e *EmptyColumnError) Error() string {
	return fmt.Sprintf("column %s has no values", e.Column)
}

// InsufficientDataError is returned when fewer complete rows remain than the model has parameters.
type InsufficientDataError struct {
	Rows     int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("not enough complete rows to fit: have %d, need %d", e.Rows, e.Required)
}

// SingularDesignError is returned when the features are collinear.
type SingularDesignError struct {
	Features [2]types.Column
}

func (e *SingularDesignError) Error() string {
	return fmt.Sprintf("features %s and %s are collinear", e.Features[0], e.Features[1])
}

// IsInsufficientData reports whether err means the data cannot support the
// requested computation. Such errors are shown inline rather than failing a page.
func IsInsufficientData(err error) bool {
	var empty *EmptyColumnError
	var insufficient *InsufficientDataError
	var singular *SingularDesignError
	return errors.As(err, &empty) || errors.As(err, &insufficient) || errors.As(err, &singular)
}
