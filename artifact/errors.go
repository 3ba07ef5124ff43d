package artifact

import "github.com/hupe1980/assetflow/core"

var (
	// ErrNotFound is returned when no asset (or file payload) exists for the
	// given id. It matches core.ErrNotFound via errors.Is.
	ErrNotFound = &core.Error{Code: core.CodeNotFound, Message: "asset not found"}

	// ErrNoFile is returned when downloading an asset that carries no binary
	// payload.
	ErrNoFile = &core.Error{Code: core.CodeValidation, Message: "asset has no file payload"}
)

// NotFound reports a missing asset id. The result matches ErrNotFound.
func NotFound(id string) error {
	return core.NewNotFound("asset", id)
}
