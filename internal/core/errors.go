package core

import "errors"

// Conversion errors. Callers wrap these with context using fmt.Errorf("...: %w", err)
// and test for them with errors.Is.
var (
	// ErrEngineMissing means the destination could not be created because the
	// database engine (ODBC driver or blank template) is not available.
	ErrEngineMissing = errors.New("destination database engine not available")

	// ErrSourceNotFound means the archive does not contain the embedded store.
	ErrSourceNotFound = errors.New("embedded database not found in source archive")

	// ErrSchemaNotFound means the source store has no user tables.
	ErrSchemaNotFound = errors.New("no tables found in source database")

	// ErrConnection means the source connector could not open the file.
	ErrConnection = errors.New("could not connect to source database")

	// ErrIntegrity means a row collided with an existing primary key.
	ErrIntegrity = errors.New("duplicate key")

	ErrUnsupportedSource = errors.New("unsupported source format")
	ErrMissingKey        = errors.New("missing key column")
	ErrInvalidValue      = errors.New("invalid value")

	ErrInvalidRequest = errors.New("invalid conversion request")
	ErrTooManyJobs    = errors.New("too many concurrent conversions, please try again later")
	ErrJobNotFound    = errors.New("conversion not found")
)
