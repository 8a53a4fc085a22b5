//go:build windows || odbc

package dialect

// The ODBC driver needs the platform ODBC manager (odbc32.dll on Windows,
// unixODBC elsewhere), so it is only linked in where one is expected.
import _ "github.com/alexbrainman/odbc"
